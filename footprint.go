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
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/sirupsen/logrus"
)

// crownVertices is the number of vertices used to approximate a
// tree crown outline.
const crownVertices = 24

// Footprint is the outline of a feature in world coordinates.
type Footprint struct {
	geom.Polygon
	Kind   string // "building" or "tree"
	Name   string
	Height float64
}

// Footprint returns the outline of the building, clipped to a grid
// with the given number of rows and columns. ok is false if the
// building lies entirely outside the grid.
func (b Building) Footprint(p Placement, rows, cols int) (fp Footprint, ok bool) {
	r1, r2 := clip(b.R1, b.R2, rows)
	c1, c2 := clip(b.C1, b.C2, cols)
	if r1 >= r2 || c1 >= c2 {
		return Footprint{}, false
	}
	return Footprint{
		Polygon: p.Rectangle(r1, r2, c1, c2),
		Kind:    "building",
		Name:    b.Name,
		Height:  b.Height,
	}, true
}

// Footprint returns the circular crown outline of the tree. ok is
// false if no cell of the grid lies within the crown.
func (t Tree) Footprint(p Placement, rows, cols int) (fp Footprint, ok bool) {
	k := int(math.Ceil(t.radius()))
	r1, r2 := clip(t.Row-k, t.Row+k+1, rows)
	c1, c2 := clip(t.Col-k, t.Col+k+1, cols)
	if r1 >= r2 || c1 >= c2 {
		return Footprint{}, false
	}
	c := p.Center(t.Row, t.Col)
	rx, ry := t.radius()*math.Abs(p.Dx), t.radius()*math.Abs(p.Dy)
	ring := make([]geom.Point, crownVertices+1)
	for i := 0; i < crownVertices; i++ {
		// Decreasing angles give a clockwise ring.
		a := -2 * math.Pi * float64(i) / crownVertices
		ring[i] = geom.Point{X: c.X + rx*math.Cos(a), Y: c.Y + ry*math.Sin(a)}
	}
	ring[crownVertices] = ring[0]
	return Footprint{
		Polygon: geom.Polygon{ring},
		Kind:    "tree",
		Name:    t.Name,
		Height:  t.Height,
	}, true
}

// Footprints returns the outlines of all features that overlap a grid
// with the given number of rows and columns, buildings first.
func (f Features) Footprints(p Placement, rows, cols int) []Footprint {
	var o []Footprint
	for _, b := range f.Buildings {
		if fp, ok := b.Footprint(p, rows, cols); ok {
			o = append(o, fp)
		}
	}
	for _, t := range f.Trees {
		if fp, ok := t.Footprint(p, rows, cols); ok {
			o = append(o, fp)
		}
	}
	return o
}

// WriteFootprints writes footprints to a polygon shapefile at path,
// along with a .prj file holding projection.
func WriteFootprints(path, projection string, footprints []Footprint) error {
	if filepath.Ext(path) != ".shp" {
		return fmt.Errorf("demgen: footprint file %s should have extension .shp", path)
	}
	e, err := shp.NewEncoderFromFields(path, goshp.POLYGON,
		goshp.StringField("Kind", 10),
		goshp.StringField("Name", 40),
		goshp.FloatField("Height", 12, 3),
	)
	if err != nil {
		return fmt.Errorf("demgen: creating footprint shapefile: %w", err)
	}
	for _, fp := range footprints {
		if err = e.EncodeFields(fp.Polygon, fp.Kind, fp.Name, fp.Height); err != nil {
			e.Close()
			return fmt.Errorf("demgen: writing footprint %s %q: %w", fp.Kind, fp.Name, err)
		}
	}
	e.Close()

	prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	if err := os.WriteFile(prj, []byte(projection), 0644); err != nil {
		return fmt.Errorf("demgen: writing footprint projection: %w", err)
	}
	return nil
}

// SaveFootprints returns a function that writes the outlines of the
// scene's features to the shapefile at path.
func SaveFootprints(path string) SceneManipulator {
	return func(s *Scene) error {
		c := s.Config
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("demgen: creating output directory: %w", err)
		}
		fps := c.Features.Footprints(c.Placement, c.Rows, c.Cols)
		// Register the files first so that a failed write is cleaned up.
		base := strings.TrimSuffix(path, filepath.Ext(path))
		for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
			s.addOutput(base + ext)
		}
		if err := WriteFootprints(path, c.Placement.Projection, fps); err != nil {
			return err
		}
		s.log().WithFields(logrus.Fields{
			"path":     path,
			"features": len(fps),
		}).Info("created feature footprints")
		return nil
	}
}
