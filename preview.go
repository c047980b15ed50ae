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
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// objectHeight presents surface minus terrain as a plotter.GridXYZ.
// Row indices are flipped so that Y increases with r.
type objectHeight struct {
	terrain, surface *Grid
}

func (o objectHeight) Dims() (c, r int) { return o.surface.Cols(), o.surface.Rows() }

func (o objectHeight) Z(c, r int) float64 {
	row := o.surface.Rows() - 1 - r
	return o.surface.At(row, c) - o.terrain.At(row, c)
}

func (o objectHeight) X(c int) float64 { return o.surface.Center(0, c).X }

func (o objectHeight) Y(r int) float64 { return o.surface.Center(o.surface.Rows()-1-r, 0).Y }

// ObjectHeightPlot returns a heat map of surface minus terrain.
func ObjectHeightPlot(terrain, surface *Grid) (*plot.Plot, error) {
	if !terrain.SameShape(surface) {
		return nil, fmt.Errorf("%w: cannot plot object height", ErrShapeMismatch)
	}
	h := plotter.NewHeatMap(objectHeight{terrain: terrain, surface: surface}, palette.Heat(12, 1))
	if h.Max <= h.Min {
		// A scene without objects is flat.
		h.Max = h.Min + 1
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Object height (%.1f m to %.1f m)", h.Min, h.Max)
	p.X.Label.Text = "Easting (m)"
	p.Y.Label.Text = "Northing (m)"
	p.Add(h)
	return p, nil
}

// CrossSectionPlot returns a line plot of terrain and surface elevation
// along the given row.
func CrossSectionPlot(terrain, surface *Grid, row int) (*plot.Plot, error) {
	if !terrain.SameShape(surface) {
		return nil, fmt.Errorf("%w: cannot plot cross section", ErrShapeMismatch)
	}
	if row < 0 || row >= terrain.Rows() {
		return nil, fmt.Errorf("demgen: cross-section row %d is outside the grid", row)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Cross section at row %d", row)
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Elevation (m)"

	for _, l := range []struct {
		name  string
		g     *Grid
		color color.Color
	}{
		{"DTM", terrain, color.RGBA{R: 139, G: 90, B: 43, A: 255}},
		{"DSM", surface, color.RGBA{R: 34, G: 139, B: 34, A: 255}},
	} {
		pts := make(plotter.XYs, l.g.Cols())
		for i := range pts {
			pts[i].X = (float64(i) + 0.5) * l.g.Dx
			pts[i].Y = l.g.At(row, i)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("demgen: plotting %s cross section: %w", l.name, err)
		}
		line.Color = l.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	return p, nil
}

// SavePreviews returns a function that writes PNG images of the object
// heights and of a cross section through the middle row to dir. The
// file names start with prefix.
func SavePreviews(dir, prefix string) SceneManipulator {
	return func(s *Scene) error {
		if s.Terrain == nil || s.Surface == nil {
			return fmt.Errorf("demgen: previews requested before both grids were generated")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("demgen: creating output directory: %w", err)
		}
		heights, err := ObjectHeightPlot(s.Terrain, s.Surface)
		if err != nil {
			return err
		}
		section, err := CrossSectionPlot(s.Terrain, s.Surface, s.Terrain.Rows()/2)
		if err != nil {
			return err
		}
		for _, pl := range []struct {
			p      *plot.Plot
			name   string
			width  vg.Length
			height vg.Length
		}{
			{heights, prefix + "_object_height.png", 6 * vg.Inch, 6 * vg.Inch},
			{section, prefix + "_cross_section.png", 14 * vg.Inch, 6 * vg.Inch},
		} {
			path := filepath.Join(dir, pl.name)
			s.addOutput(path)
			if err := pl.p.Save(pl.width, pl.height, path); err != nil {
				return fmt.Errorf("demgen: saving preview %s: %w", path, err)
			}
			s.log().WithFields(logrus.Fields{"path": path}).Info("created preview")
		}
		return nil
	}
}
