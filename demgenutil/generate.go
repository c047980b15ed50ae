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

package demgenutil

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/demgen"
	"github.com/spatialmodel/demgen/internal/hash"
)

// announce returns a function that prints msg to w before running f.
func announce(w io.Writer, msg string, f demgen.SceneManipulator) demgen.SceneManipulator {
	return func(s *demgen.Scene) error {
		fmt.Fprintln(w, msg)
		return f(s)
	}
}

// Generate creates the scene described by cfg, writes the output files
// and prints a report of the run to w.
func Generate(cfg *viper.Viper, w io.Writer) error {
	ctx := context.TODO()
	log := logrus.StandardLogger()

	// Check the driver before doing any work.
	enc, err := checkFormat(cfg.GetString("Format"))
	if err != nil {
		return err
	}
	outputDir, err := checkOutputDir(ctx, cfg.GetString("OutputDir"))
	if err != nil {
		return err
	}
	names := make(map[string]string)
	for _, option := range []string{"DTMName", "DSMName", "FootprintName"} {
		if names[option], err = checkName(option, cfg.GetString(option)); err != nil {
			return err
		}
	}
	if names["DTMName"] == names["DSMName"] {
		return fmt.Errorf("the DTMName and DSMName configuration variables must differ, but both are `%s`", names["DTMName"])
	}
	c, err := SceneConfig(ctx, cfg)
	if err != nil {
		return err
	}
	log.WithField("fingerprint", c.Fingerprint()).Debugf("scene configuration:\n%s", hash.Dump(c))

	up := new(uploader)
	dir := up.maybeUpload(outputDir)
	if up.err != nil {
		return fmt.Errorf("demgen: creating staging directory: %v", up.err)
	}
	defer func() {
		if err := up.cleanup(); err != nil {
			log.WithError(err).Warn("removing staging directory")
		}
	}()

	width, height, ha := c.Area()
	fmt.Fprintln(w, "Creating test rasters...")
	fmt.Fprintf(w, "   Dimensions: %dx%d pixels\n", c.Cols, c.Rows)
	fmt.Fprintf(w, "   Resolution: %gm per pixel\n", c.Placement.Dx)
	fmt.Fprintf(w, "   Area covered: %gm x %gm = %.2f hectares\n", width, height, ha)
	fmt.Fprintf(w, "   Spatial reference: EPSG:%d\n", c.Placement.EPSG)
	fmt.Fprintf(w, "   Seed: %d\n", c.Seed)

	s := &demgen.Scene{
		Config: c,
		InitFuncs: []demgen.SceneManipulator{
			announce(w, "\n1. Creating DTM (terrain)...", demgen.BuildTerrain()),
			announce(w, fmt.Sprintf("\n2. Creating DSM (terrain + %d buildings and %d trees)...",
				len(c.Features.Buildings), len(c.Features.Trees)), demgen.BuildSurface()),
			demgen.ComputeStats(),
		},
		RunFuncs: []demgen.SceneManipulator{
			announce(w, "\n3. Writing output files...",
				demgen.SaveRasters(enc, dir, names["DTMName"], names["DSMName"])),
		},
		Log: log,
	}
	if cfg.GetBool("Footprints") {
		s.RunFuncs = append(s.RunFuncs, demgen.SaveFootprints(filepath.Join(dir, names["FootprintName"]+".shp")))
	}
	if cfg.GetBool("Preview") {
		s.RunFuncs = append(s.RunFuncs, demgen.SavePreviews(dir, "preview"))
	}

	if err := s.Init(); err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		return err
	}
	outputs, err := up.uploadOutput(ctx, s.Outputs(), log)
	if err != nil {
		if rerr := s.RemoveOutputs(); rerr != nil {
			log.WithError(rerr).Warn("removing local output")
		}
		return err
	}
	for i, o := range outputs {
		if o == s.Outputs()[i] {
			if abs, err := filepath.Abs(o); err == nil {
				outputs[i] = abs
			}
		}
		fmt.Fprintf(w, "   ✓ Created: %s\n", outputs[i])
	}

	fmt.Fprint(w, "\n4. ")
	if err := s.Stats.Fprint(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n✅ Test data created successfully!")
	fmt.Fprintln(w, "\nYou can now load these files into a shadow or visibility analysis:")
	fmt.Fprintf(w, "   - DTM: %s\n", outputs[0])
	fmt.Fprintf(w, "   - DSM: %s\n", outputs[1])
	return nil
}
