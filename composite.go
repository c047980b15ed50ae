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
	"math"
)

// DefaultCrownRadius is the tree crown radius, in cells, used when a
// Tree does not specify one.
const DefaultCrownRadius = 3.0

// Building is a flat-topped rectangular object covering rows [R1, R2)
// and columns [C1, C2).
type Building struct {
	Name           string
	R1, R2, C1, C2 int

	// Height is added to the terrain elevation, in meters.
	Height float64
}

// Tree is a crown centered on cell (Row, Col). A cell at Euclidean
// distance d < Radius (in cells) from the center gains Height*exp(-d).
type Tree struct {
	Name     string
	Row, Col int
	Height   float64

	// Radius is the crown radius in cells. Zero means DefaultCrownRadius.
	Radius float64
}

func (t Tree) radius() float64 {
	if t.Radius == 0 {
		return DefaultCrownRadius
	}
	return t.Radius
}

// Contribution returns the height the tree adds at distance d
// (in cells) from its center.
func (t Tree) Contribution(d float64) float64 {
	if d >= t.radius() {
		return 0
	}
	return t.Height * math.Exp(-d)
}

// Features is the set of above-ground objects in a scene.
type Features struct {
	Buildings []Building
	Trees     []Tree
}

// DefaultFeatures returns the reference scene of five buildings and
// six trees on a 200 by 200 grid.
func DefaultFeatures() Features {
	return Features{
		Buildings: []Building{
			{R1: 40, R2: 60, C1: 40, C2: 60, Height: 15},
			{R1: 80, R2: 100, C1: 50, C2: 70, Height: 10},
			{R1: 120, R2: 140, C1: 80, C2: 100, Height: 12},
			{R1: 30, R2: 45, C1: 100, C2: 115, Height: 8},
			{R1: 150, R2: 170, C1: 150, C2: 170, Height: 20},
		},
		Trees: []Tree{
			{Row: 70, Col: 30, Height: 5},
			{Row: 90, Col: 120, Height: 6},
			{Row: 110, Col: 40, Height: 5},
			{Row: 140, Col: 130, Height: 7},
			{Row: 60, Col: 150, Height: 6},
			{Row: 100, Col: 160, Height: 5},
		},
	}
}

// Validate checks that no feature would lower the surface below the
// terrain.
func (f Features) Validate() error {
	for i, b := range f.Buildings {
		if b.Height < 0 || math.IsNaN(b.Height) || math.IsInf(b.Height, 0) {
			return fmt.Errorf("demgen: building %d (%s) has height %g but should be >=0", i, b.Name, b.Height)
		}
	}
	for i, t := range f.Trees {
		if t.Height < 0 || math.IsNaN(t.Height) || math.IsInf(t.Height, 0) {
			return fmt.Errorf("demgen: tree %d (%s) has height %g but should be >=0", i, t.Name, t.Height)
		}
		if t.Radius < 0 || math.IsNaN(t.Radius) || math.IsInf(t.Radius, 0) {
			return fmt.Errorf("demgen: tree %d (%s) has radius %g but should be >=0", i, t.Name, t.Radius)
		}
	}
	return nil
}

// clip limits [lo, hi) to [0, n).
func clip(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

// addTo adds the building to g, ignoring any part outside the grid.
func (b Building) addTo(g *Grid) {
	r1, r2 := clip(b.R1, b.R2, g.Rows())
	c1, c2 := clip(b.C1, b.C2, g.Cols())
	for j := r1; j < r2; j++ {
		for i := c1; i < c2; i++ {
			g.Data.AddVal(b.Height, j, i)
		}
	}
}

// addTo adds the tree crown to g, ignoring any part outside the grid.
func (t Tree) addTo(g *Grid) {
	k := int(math.Ceil(t.radius()))
	r1, r2 := clip(t.Row-k, t.Row+k+1, g.Rows())
	c1, c2 := clip(t.Col-k, t.Col+k+1, g.Cols())
	for j := r1; j < r2; j++ {
		for i := c1; i < c2; i++ {
			d := math.Hypot(float64(j-t.Row), float64(i-t.Col))
			if v := t.Contribution(d); v != 0 {
				g.Data.AddVal(v, j, i)
			}
		}
	}
}

// Composite returns a surface grid made by adding the buildings and tree
// crowns in f to a copy of terrain. terrain is not modified.
func Composite(terrain *Grid, f Features) (*Grid, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	surface := terrain.Copy()
	for _, b := range f.Buildings {
		b.addTo(surface)
	}
	for _, t := range f.Trees {
		t.addTo(surface)
	}
	return surface, nil
}
