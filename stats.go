/*
Copyright © 2026 the demgen authors.
This file is part of demgen.

demgen is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

demgen is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with demgen.  If not, see <http://www.gnu.org/licenses/>.*/

package demgen

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrShapeMismatch is returned when two grids that must be
// co-registered have different dimensions.
var ErrShapeMismatch = errors.New("demgen: grid shapes do not match")

// DefaultObjectThreshold is the minimum surface-minus-terrain
// difference, in meters, for a cell to count as an object cell.
const DefaultObjectThreshold = 0.5

// Summary holds the range and moments of a single grid.
type Summary struct {
	Min, Max     float64
	Mean, StdDev float64
}

// Summarize returns the range, mean and population standard deviation
// of the values in g.
func Summarize(g *Grid) Summary {
	v := g.Values()
	mean, std := stat.PopMeanStdDev(v, nil)
	return Summary{
		Min:    floats.Min(v),
		Max:    floats.Max(v),
		Mean:   mean,
		StdDev: std,
	}
}

// Statistics describes a terrain and surface pair.
type Statistics struct {
	Terrain, Surface Summary

	// MaxObjectHeight is the largest surface-minus-terrain difference.
	MaxObjectHeight float64

	// ObjectCells is the number of cells whose surface-minus-terrain
	// difference exceeds Threshold.
	ObjectCells int

	Threshold float64
}

// ComputeStatistics summarizes terrain and surface, which must have
// the same shape. Neither grid is modified.
func ComputeStatistics(terrain, surface *Grid, threshold float64) (*Statistics, error) {
	if !terrain.SameShape(surface) {
		return nil, fmt.Errorf("%w: terrain is %dx%d but surface is %dx%d", ErrShapeMismatch,
			terrain.Rows(), terrain.Cols(), surface.Rows(), surface.Cols())
	}
	diff := ObjectHeight(terrain, surface)
	s := &Statistics{
		Terrain:         Summarize(terrain),
		Surface:         Summarize(surface),
		MaxObjectHeight: floats.Max(diff),
		Threshold:       threshold,
	}
	for _, d := range diff {
		if d > threshold {
			s.ObjectCells++
		}
	}
	return s, nil
}

// ObjectHeight returns surface minus terrain in row-major order.
// The grids must have the same shape.
func ObjectHeight(terrain, surface *Grid) []float64 {
	diff := make([]float64, len(surface.Values()))
	floats.SubTo(diff, surface.Values(), terrain.Values())
	return diff
}

// Fprint writes a human-readable report of s to w.
func (s *Statistics) Fprint(w io.Writer) error {
	_, err := fmt.Fprintf(w, `Raster Statistics:
   DTM elevation range: %.2fm - %.2fm
   DSM elevation range: %.2fm - %.2fm
   Maximum object height: %.2fm
   Objects present: %d pixels (> %gm)
`, s.Terrain.Min, s.Terrain.Max, s.Surface.Min, s.Surface.Max,
		s.MaxObjectHeight, s.ObjectCells, s.Threshold)
	return err
}
