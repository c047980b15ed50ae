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

// Package demgen generates co-registered synthetic elevation models:
// a bare-earth terrain model (DTM) and a surface model (DSM) that adds
// buildings and tree crowns to it.
package demgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/demgen/internal/hash"
	"github.com/spatialmodel/demgen/raster"
)

// DefaultProjection is the proj4 definition of CH1903+ / LV95 (EPSG:2056).
const DefaultProjection = "+proj=somerc +lat_0=46.9524055555556 +lon_0=7.43958333333333 +k_0=1 " +
	"+x_0=2600000 +y_0=1200000 +ellps=bessel +towgs84=674.374,15.056,405.346,0,0,0,0 +units=m +no_defs"

// Config holds everything needed to generate a scene.
type Config struct {
	Rows, Cols int
	Placement  Placement

	Terrain TerrainParams
	Seed    uint64

	Features Features

	// ObjectThreshold is the surface-minus-terrain difference above
	// which a cell counts as part of an object.
	ObjectThreshold float64

	// NoData is the sentinel declared to raster encoders.
	NoData float64
}

// DefaultConfig returns the reference scene: a 200 by 200 grid of
// 0.5 m cells in CH1903+ / LV95 with five buildings and six trees.
func DefaultConfig() *Config {
	return &Config{
		Rows:            200,
		Cols:            200,
		Placement:       NorthUp(2683000, 1248000, 0.5, 2056, DefaultProjection),
		Terrain:         DefaultTerrainParams(),
		Seed:            1,
		Features:        DefaultFeatures(),
		ObjectThreshold: DefaultObjectThreshold,
		NoData:          raster.DefaultNoData,
	}
}

// Validate checks the configuration before any grid is generated.
func (c *Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("%w: got %d rows and %d columns", ErrInvalidDimensions, c.Rows, c.Cols)
	}
	if c.Placement.Dx <= 0 || c.Placement.Dy == 0 {
		return fmt.Errorf("demgen: pixel size %g x %g is invalid", c.Placement.Dx, c.Placement.Dy)
	}
	if _, err := c.Placement.SR(); err != nil {
		return err
	}
	if err := c.Terrain.Validate(); err != nil {
		return err
	}
	return c.Features.Validate()
}

// Fingerprint returns a hash of c.
func (c *Config) Fingerprint() string {
	return hash.Hash(c)
}

// Area returns the extent of the grid in meters and hectares.
func (c *Config) Area() (width, height, hectares float64) {
	width = float64(c.Cols) * c.Placement.Dx
	height = float64(c.Rows) * -c.Placement.Dy
	if height < 0 {
		height = -height
	}
	return width, height, width * height / 1e4
}

// SceneManipulator is a function that operates on a Scene.
type SceneManipulator func(s *Scene) error

// Scene holds a generated terrain and surface pair.
type Scene struct {
	Config *Config

	Terrain, Surface *Grid
	Stats            *Statistics

	// InitFuncs generate the grids. They are run by Init.
	InitFuncs []SceneManipulator

	// RunFuncs write the scene out. They are run by Run.
	RunFuncs []SceneManipulator

	// Log receives progress messages. If nil, the standard
	// logrus logger is used.
	Log logrus.FieldLogger

	outputs []string
}

func (s *Scene) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Init runs the InitFuncs in order.
func (s *Scene) Init() error {
	if s.Config == nil {
		return fmt.Errorf("demgen: scene has no configuration")
	}
	for _, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// Run runs the RunFuncs in order. If any of them fails, the files
// written so far are removed.
func (s *Scene) Run() error {
	for _, f := range s.RunFuncs {
		if err := f(s); err != nil {
			if rerr := s.RemoveOutputs(); rerr != nil {
				s.log().WithError(rerr).Warn("removing partial output")
			}
			return err
		}
	}
	return nil
}

// Outputs returns the paths of the files written by Run.
func (s *Scene) Outputs() []string { return s.outputs }

// RemoveOutputs deletes the files written by Run.
func (s *Scene) RemoveOutputs() error {
	var first error
	for _, p := range s.outputs {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = fmt.Errorf("demgen: removing %s: %w", p, err)
		}
	}
	s.outputs = nil
	return first
}

func (s *Scene) addOutput(paths ...string) {
	s.outputs = append(s.outputs, paths...)
}

// BuildTerrain returns a function that generates the terrain grid.
func BuildTerrain() SceneManipulator {
	return func(s *Scene) error {
		c := s.Config
		if err := c.Validate(); err != nil {
			return err
		}
		s.log().WithFields(logrus.Fields{
			"rows": c.Rows,
			"cols": c.Cols,
			"seed": c.Seed,
		}).Info("creating DTM (terrain)")
		g, err := GenerateTerrain(c.Rows, c.Cols, c.Placement, c.Terrain, c.Seed)
		if err != nil {
			return err
		}
		s.Terrain = g
		return nil
	}
}

// BuildSurface returns a function that composites the configured
// features onto the terrain.
func BuildSurface() SceneManipulator {
	return func(s *Scene) error {
		if s.Terrain == nil {
			return fmt.Errorf("demgen: surface requested before terrain was generated")
		}
		f := s.Config.Features
		s.log().WithFields(logrus.Fields{
			"buildings": len(f.Buildings),
			"trees":     len(f.Trees),
		}).Info("creating DSM (terrain + objects)")
		for i, b := range f.Buildings {
			s.log().WithFields(logrus.Fields{
				"building": i, "name": b.Name, "rows": [2]int{b.R1, b.R2},
				"cols": [2]int{b.C1, b.C2}, "height": b.Height,
			}).Debug("adding building")
		}
		for i, t := range f.Trees {
			s.log().WithFields(logrus.Fields{
				"tree": i, "name": t.Name, "row": t.Row, "col": t.Col,
				"height": t.Height, "radius": t.radius(),
			}).Debug("adding tree")
		}
		g, err := Composite(s.Terrain, f)
		if err != nil {
			return err
		}
		s.Surface = g
		return nil
	}
}

// ComputeStats returns a function that summarizes the terrain and
// surface grids.
func ComputeStats() SceneManipulator {
	return func(s *Scene) error {
		if s.Terrain == nil || s.Surface == nil {
			return fmt.Errorf("demgen: statistics requested before both grids were generated")
		}
		st, err := ComputeStatistics(s.Terrain, s.Surface, s.Config.ObjectThreshold)
		if err != nil {
			return err
		}
		s.Stats = st
		s.log().WithFields(logrus.Fields{
			"max_object_height": st.MaxObjectHeight,
			"object_cells":      st.ObjectCells,
		}).Debug("computed statistics")
		return nil
	}
}

// Band returns g as a raster band described by description.
func (s *Scene) Band(g *Grid, description string) *raster.Band {
	sum := Summarize(g)
	return &raster.Band{
		Width:        g.Cols(),
		Height:       g.Rows(),
		Data:         g.Values(),
		GeoTransform: g.GeoTransform(),
		EPSG:         g.EPSG,
		Projection:   g.Projection,
		NoData:       s.Config.NoData,
		Description:  description,
		Stats: raster.Statistics{
			Min: sum.Min, Max: sum.Max, Mean: sum.Mean, StdDev: sum.StdDev,
		},
		Metadata: map[string]string{
			"AREA_OR_POINT":      "Area",
			"demgen_fingerprint": s.Config.Fingerprint(),
			"demgen_seed":        strconv.FormatUint(s.Config.Seed, 10),
			"demgen_version":     Version,
		},
	}
}

// SaveRasters returns a function that writes the terrain and surface
// grids to dir using enc. The file names are dtmName and dsmName plus
// the encoder's extension. dir is created if it does not exist.
func SaveRasters(enc raster.Encoder, dir, dtmName, dsmName string) SceneManipulator {
	return func(s *Scene) error {
		if s.Terrain == nil || s.Surface == nil {
			return fmt.Errorf("demgen: saving rasters before both grids were generated")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("demgen: creating output directory: %w", err)
		}
		for _, r := range []struct {
			g          *Grid
			name, desc string
		}{
			{s.Terrain, dtmName, "DTM"},
			{s.Surface, dsmName, "DSM"},
		} {
			path := filepath.Join(dir, r.name+enc.Extension())
			if err := raster.WriteFile(path, enc, s.Band(r.g, r.desc)); err != nil {
				return err
			}
			s.addOutput(path)
			s.log().WithField("path", path).Info("created " + r.desc)
		}
		return nil
	}
}
