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
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// ErrInvalidDimensions is returned when a grid is requested with a
// non-positive number of rows or columns.
var ErrInvalidDimensions = errors.New("demgen: grid dimensions must be positive")

// Placement maps grid indices to world coordinates. The origin is the
// outer corner of cell (0, 0); for north-up grids Dy is negative.
type Placement struct {
	OriginX, OriginY float64
	Dx, Dy           float64

	// EPSG is the numeric identifier of the spatial reference.
	EPSG int

	// Projection is the proj4 or WKT definition of the spatial reference.
	Projection string
}

// NorthUp returns a Placement with square pixels of the given size
// whose rows run from north to south.
func NorthUp(originX, originY, pixelSize float64, epsg int, projection string) Placement {
	return Placement{
		OriginX:    originX,
		OriginY:    originY,
		Dx:         pixelSize,
		Dy:         -pixelSize,
		EPSG:       epsg,
		Projection: projection,
	}
}

// GeoTransform returns the six-element affine transform
// [x0, dx, 0, y0, 0, dy] used by GDAL-style raster formats.
func (p Placement) GeoTransform() [6]float64 {
	return [6]float64{p.OriginX, p.Dx, 0, p.OriginY, 0, p.Dy}
}

// Corner returns the world coordinates of the outer corner of
// the cell at (row, col).
func (p Placement) Corner(row, col float64) geom.Point {
	return geom.Point{X: p.OriginX + col*p.Dx, Y: p.OriginY + row*p.Dy}
}

// Center returns the world coordinates of the center of the cell
// at (row, col).
func (p Placement) Center(row, col int) geom.Point {
	return p.Corner(float64(row)+0.5, float64(col)+0.5)
}

// Rectangle returns the polygon covering rows [r1, r2) and columns [c1, c2).
// The ring is clockwise for north-up placements.
func (p Placement) Rectangle(r1, r2, c1, c2 int) geom.Polygon {
	tl := p.Corner(float64(r1), float64(c1))
	br := p.Corner(float64(r2), float64(c2))
	return geom.Polygon{{
		{X: tl.X, Y: tl.Y},
		{X: br.X, Y: tl.Y},
		{X: br.X, Y: br.Y},
		{X: tl.X, Y: br.Y},
		{X: tl.X, Y: tl.Y},
	}}
}

// Bounds returns the world extent of a grid with the given number of
// rows and columns.
func (p Placement) Bounds(rows, cols int) *geom.Bounds {
	b := geom.NewBounds()
	b.Extend(p.Rectangle(0, rows, 0, cols).Bounds())
	return b
}

// SR parses the projection definition.
func (p Placement) SR() (*proj.SR, error) {
	sr, err := proj.Parse(p.Projection)
	if err != nil {
		return nil, fmt.Errorf("demgen: parsing projection for EPSG:%d: %w", p.EPSG, err)
	}
	return sr, nil
}

// LonLatBounds returns the grid extent in geographic coordinates.
// It fails for projections the proj package cannot transform.
func (p Placement) LonLatBounds(rows, cols int) (*geom.Bounds, error) {
	src, err := p.SR()
	if err != nil {
		return nil, err
	}
	dst, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		return nil, err
	}
	ct, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("demgen: projecting grid extent: %w", err)
	}
	g, err := p.Rectangle(0, rows, 0, cols).Transform(ct)
	if err != nil {
		return nil, fmt.Errorf("demgen: projecting grid extent: %w", err)
	}
	return g.Bounds(), nil
}

// Grid is a geo-referenced two-dimensional array of elevations in meters
// with shape [rows, columns].
type Grid struct {
	Data *sparse.DenseArray
	Placement
}

// NewGrid returns a zero-valued grid.
func NewGrid(rows, cols int, p Placement) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: got %d rows and %d columns", ErrInvalidDimensions, rows, cols)
	}
	return &Grid{Data: sparse.ZerosDense(rows, cols), Placement: p}, nil
}

// Rows returns the number of rows in the grid.
func (g *Grid) Rows() int { return g.Data.Shape[0] }

// Cols returns the number of columns in the grid.
func (g *Grid) Cols() int { return g.Data.Shape[1] }

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.Data.Get(row, col) }

// Values returns the grid values in row-major order. The returned
// slice is shared with the grid.
func (g *Grid) Values() []float64 { return g.Data.Elements }

// Copy returns a deep copy of g.
func (g *Grid) Copy() *Grid {
	return &Grid{Data: g.Data.Copy(), Placement: g.Placement}
}

// SameShape reports whether g and o have the same dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Rows() == o.Rows() && g.Cols() == o.Cols()
}

// Bounds returns the world extent of the grid.
func (g *Grid) Bounds() *geom.Bounds {
	return g.Placement.Bounds(g.Rows(), g.Cols())
}

// checkFinite returns an error naming the first cell that holds
// NaN or an infinity.
func (g *Grid) checkFinite() error {
	for i, v := range g.Data.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("demgen: non-finite elevation %g at row %d, column %d",
				v, i/g.Cols(), i%g.Cols())
		}
	}
	return nil
}
