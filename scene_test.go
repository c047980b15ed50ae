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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/demgen/raster"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(new(bytes.Buffer))
	return l
}

func TestDefaultScene(t *testing.T) {
	s := &Scene{
		Config:    DefaultConfig(),
		InitFuncs: []SceneManipulator{BuildTerrain(), BuildSurface(), ComputeStats()},
		Log:       testLogger(),
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	st := s.Stats
	// Five buildings cover 1825 cells; each tree crown exceeds the
	// threshold within 21 cells.
	if st.ObjectCells != 1825+6*21 {
		t.Errorf("object cells: want %d, got %d", 1825+6*21, st.ObjectCells)
	}
	if different(st.MaxObjectHeight, 20, testTolerance) {
		t.Errorf("max object height: %g", st.MaxObjectHeight)
	}
	if st.Surface.Min < st.Terrain.Min || st.Surface.Max <= st.Terrain.Max {
		t.Errorf("surface range %g-%g vs terrain %g-%g",
			st.Surface.Min, st.Surface.Max, st.Terrain.Min, st.Terrain.Max)
	}
	for i, d := range ObjectHeight(s.Terrain, s.Surface) {
		if d < 0 {
			t.Fatalf("cell %d: surface is %g below terrain", i, -d)
		}
	}

	var buf bytes.Buffer
	if err := st.Fprint(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Objects present: 1951 pixels") {
		t.Errorf("report:\n%s", buf.String())
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	w, h, ha := c.Area()
	if w != 100 || h != 100 || ha != 1 {
		t.Errorf("area: %g x %g = %g ha", w, h, ha)
	}
	if c.Fingerprint() != DefaultConfig().Fingerprint() {
		t.Error("fingerprint should be deterministic")
	}
	c2 := DefaultConfig()
	c2.Seed = 2
	if c.Fingerprint() == c2.Fingerprint() {
		t.Error("fingerprint should depend on the seed")
	}
	c2 = DefaultConfig()
	c2.Placement.Projection = "CH1903+"
	if err := c2.Validate(); err == nil {
		t.Error("invalid projection should fail")
	}
}

func TestSceneOrder(t *testing.T) {
	s := &Scene{
		Config:    DefaultConfig(),
		InitFuncs: []SceneManipulator{BuildSurface()},
		Log:       testLogger(),
	}
	if err := s.Init(); err == nil {
		t.Error("surface before terrain should fail")
	}
	if err := (&Scene{}).Init(); err == nil {
		t.Error("scene without configuration should fail")
	}
}

func smallConfig() *Config {
	c := DefaultConfig()
	c.Rows, c.Cols = 40, 30
	c.Features = Features{
		Buildings: []Building{{Name: "hall", R1: 5, R2: 15, C1: 5, C2: 10, Height: 9}},
		Trees:     []Tree{{Name: "oak", Row: 30, Col: 20, Height: 5}},
	}
	return c
}

func TestSceneRun(t *testing.T) {
	dir := t.TempDir()
	enc, err := raster.Lookup("gtiff")
	if err != nil {
		t.Fatal(err)
	}
	s := &Scene{
		Config:    smallConfig(),
		InitFuncs: []SceneManipulator{BuildTerrain(), BuildSurface(), ComputeStats()},
		RunFuncs: []SceneManipulator{
			SaveRasters(enc, filepath.Join(dir, "out"), "test_dtm", "test_dsm"),
			SaveFootprints(filepath.Join(dir, "out", "test_features.shp")),
			SavePreviews(filepath.Join(dir, "out"), "test"),
		},
		Log: testLogger(),
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"test_dtm.tif", "test_dsm.tif",
		"test_features.shp", "test_features.shx", "test_features.dbf", "test_features.prj",
		"test_object_height.png", "test_cross_section.png",
	}
	if len(s.Outputs()) != len(want) {
		t.Fatalf("outputs: %v", s.Outputs())
	}
	for i, o := range s.Outputs() {
		if filepath.Base(o) != want[i] {
			t.Errorf("output %d: want %s, got %s", i, want[i], o)
		}
		if fi, err := os.Stat(o); err != nil || fi.Size() == 0 {
			t.Errorf("%s: %v", o, err)
		}
	}

	prj, err := os.ReadFile(filepath.Join(dir, "out", "test_features.prj"))
	if err != nil {
		t.Fatal(err)
	}
	if string(prj) != DefaultProjection {
		t.Errorf("prj: %s", prj)
	}
}

func TestSceneRunCleanup(t *testing.T) {
	dir := t.TempDir()
	s := &Scene{
		Config:    smallConfig(),
		InitFuncs: []SceneManipulator{BuildTerrain(), BuildSurface()},
		RunFuncs: []SceneManipulator{
			SaveRasters(raster.GeoTIFF{}, dir, "test_dtm", "test_dsm"),
			func(*Scene) error { return fmt.Errorf("disk full") },
		},
		Log: testLogger(),
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err == nil || err.Error() != "disk full" {
		t.Fatalf("unexpected error %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d files were left behind", len(entries))
	}
	if len(s.Outputs()) != 0 {
		t.Errorf("outputs: %v", s.Outputs())
	}
}

func TestFootprints(t *testing.T) {
	c := DefaultConfig()
	fps := c.Features.Footprints(c.Placement, c.Rows, c.Cols)
	if len(fps) != 11 {
		t.Fatalf("want 11 footprints, got %d", len(fps))
	}
	b := fps[0].Bounds()
	want := &geom.Bounds{
		Min: geom.Point{X: 2683020, Y: 1247970},
		Max: geom.Point{X: 2683030, Y: 1247980},
	}
	if *b != *want {
		t.Errorf("first building bounds: %+v", b)
	}
	tb := fps[5].Bounds()
	if different(tb.Max.X-tb.Min.X, 3, testTolerance) {
		t.Errorf("tree crown diameter: %g", tb.Max.X-tb.Min.X)
	}

	outside := Features{
		Buildings: []Building{{R1: 500, R2: 510, C1: 0, C2: 10, Height: 1}},
		Trees:     []Tree{{Row: -10, Col: 5, Height: 1}},
	}
	if n := len(outside.Footprints(c.Placement, c.Rows, c.Cols)); n != 0 {
		t.Errorf("features outside the grid have %d footprints", n)
	}

	path := filepath.Join(t.TempDir(), "features.shp")
	if err := WriteFootprints(path, c.Placement.Projection, fps); err != nil {
		t.Fatal(err)
	}
	d, err := shp.NewDecoder(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var n, trees int
	for {
		g, fields, more := d.DecodeRowFields("Kind", "Height")
		if !more {
			break
		}
		if _, ok := g.(geom.Polygon); !ok {
			t.Errorf("record %d is %T", n, g)
		}
		if strings.Trim(fields["Kind"], " \x00") == "tree" {
			trees++
		}
		if n == 0 {
			h, err := strconv.ParseFloat(strings.Trim(fields["Height"], " \x00"), 64)
			if err != nil || h != 15 {
				t.Errorf("height %q: %v", fields["Height"], err)
			}
		}
		n++
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if n != 11 || trees != 6 {
		t.Errorf("records: %d, trees: %d", n, trees)
	}
	if err := WriteFootprints(filepath.Join(t.TempDir(), "features.gpkg"), "", fps); err == nil {
		t.Error("non-shapefile path should fail")
	}
}

func TestPlotsShapeMismatch(t *testing.T) {
	a, b := flat(t, 3, 3, 0), flat(t, 4, 3, 0)
	if _, err := ObjectHeightPlot(a, b); err == nil {
		t.Error("object height plot should fail")
	}
	if _, err := CrossSectionPlot(a, a, 3); err == nil {
		t.Error("out of range row should fail")
	}
	if _, err := ObjectHeightPlot(a, a); err != nil {
		t.Errorf("flat scene: %v", err)
	}
}
