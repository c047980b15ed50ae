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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/demgen"
	"github.com/spatialmodel/demgen/raster"
)

// resetCfg restores the options changed by the tests below and
// directs the output to dir.
func resetCfg(dir string) {
	Cfg.Set("config", "")
	Cfg.Set("LogLevel", "error")
	Cfg.Set("OutputDir", dir)
	Cfg.Set("Format", "gtiff")
	Cfg.Set("Scene.File", "")
	Cfg.Set("Grid.Width", 200)
	Cfg.Set("Grid.Height", 200)
	Cfg.Set("Terrain.NoiseStdDev", 0.1)
	Cfg.Set("Footprints", true)
	Cfg.Set("Preview", false)
}

// defaultCfg returns a configuration holding the default value of
// every option.
func defaultCfg() *viper.Viper {
	cfg := viper.New()
	for _, option := range options {
		cfg.SetDefault(option.name, option.defaultVal)
	}
	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs(args)
	err := Root.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	resetCfg(t.TempDir())
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "demgen v"+demgen.Version+"\n" {
		t.Errorf("version output: %q", out)
	}
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "test_data")
	resetCfg(dir)
	out, err := execute(t, "generate")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Dimensions: 200x200 pixels",
		"Area covered: 100m x 100m = 1.00 hectares",
		"1. Creating DTM (terrain)...",
		"2. Creating DSM (terrain + 5 buildings and 6 trees)...",
		"Maximum object height: 20.00m",
		"Objects present: 1951 pixels (> 0.5m)",
		"✓ Created: " + filepath.Join(dir, "test_dsm.tif"),
		"Test data created successfully!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
	for _, f := range []string{
		"test_dtm.tif", "test_dsm.tif",
		"test_features.shp", "test_features.shx", "test_features.dbf", "test_features.prj",
	} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Error(err)
		}
	}
}

func TestGenerateNetCDF(t *testing.T) {
	dir := t.TempDir()
	resetCfg(dir)
	Cfg.Set("Format", "NetCDF")
	Cfg.Set("Footprints", false)
	Cfg.Set("Preview", true)
	if _, err := execute(t, "generate"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := "preview_cross_section.png preview_object_height.png test_dsm.nc test_dtm.nc"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("files: want %s, got %s", want, got)
	}
}

func TestGenerateNoDriver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	resetCfg(dir)
	Cfg.Set("Format", "hdf5")
	_, err := execute(t, "generate")
	if !errors.Is(err, raster.ErrNoDriver) {
		t.Fatalf("want ErrNoDriver, got %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("output directory should not be created")
	}
}

const blockScene = `
[[Buildings]]
Name = "block"
R1 = 40
R2 = 60
C1 = 40
C2 = 60
Height = 15.0
`

func TestGenerateSceneFile(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "block.toml")
	if err := os.WriteFile(scene, []byte(blockScene), 0644); err != nil {
		t.Fatal(err)
	}
	resetCfg(filepath.Join(dir, "out"))
	Cfg.Set("Scene.File", scene)
	Cfg.Set("Terrain.NoiseStdDev", 0.0)
	out, err := execute(t, "generate")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"terrain + 1 buildings and 0 trees",
		"Maximum object height: 15.00m",
		"Objects present: 400 pixels",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateUpload(t *testing.T) {
	dir := t.TempDir()
	remote := filepath.Join(dir, "remote")
	resetCfg("file://" + remote)
	Cfg.Set("Grid.Width", 40)
	Cfg.Set("Grid.Height", 30)
	out, err := execute(t, "generate")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "DSM: file://"+remote+"/test_dsm.tif") {
		t.Errorf("output:\n%s", out)
	}
	for _, f := range []string{"test_dtm.tif", "test_dsm.tif", "test_features.shp", "test_features.prj"} {
		if _, err := os.Stat(filepath.Join(remote, f)); err != nil {
			t.Error(err)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "demgen.toml")
	err := os.WriteFile(config, []byte(`
Footprints = false

[Grid]
Width = 20
Height = 10
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	cfg := defaultCfg()
	cfg.SetConfigFile(config)
	if err := cfg.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	c, err := SceneConfig(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.Rows != 10 || c.Cols != 20 {
		t.Errorf("grid: %d x %d", c.Rows, c.Cols)
	}
	if cfg.GetBool("Footprints") {
		t.Error("Footprints should be false")
	}
}

func TestSceneConfig(t *testing.T) {
	c, err := SceneConfig(context.Background(), defaultCfg())
	if err != nil {
		t.Fatal(err)
	}
	if c.Fingerprint() != demgen.DefaultConfig().Fingerprint() {
		t.Errorf("default options should give the default scene: %+v", c)
	}

	for _, test := range []struct {
		name  string
		key   string
		value interface{}
	}{
		{"width", "Grid.Width", 0},
		{"height", "Grid.Height", -3},
		{"pixel size", "Grid.PixelSize", 0.0},
		{"projection", "Grid.Projection", ""},
		{"seed", "Terrain.Seed", -1},
		{"seed text", "Terrain.Seed", "one"},
		{"period", "Terrain.HillPeriod", 0.0},
		{"expression", "Terrain.Expression", "sin(X"},
		{"scene file", "Scene.File", "does_not_exist.toml"},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := defaultCfg()
			cfg.Set(test.key, test.value)
			if _, err := SceneConfig(context.Background(), cfg); err == nil {
				t.Errorf("%s=%v should fail", test.key, test.value)
			}
		})
	}
}

func TestLoadScene(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		f, err := loadScene(ctx, write("trees.toml", `
[[Trees]]
Row = 5
Col = 7
Height = 8.0

[[Trees]]
Name = "wide"
Row = 10
Col = 10
Height = 4.0
Radius = 5.0
`))
		if err != nil {
			t.Fatal(err)
		}
		if len(f.Buildings) != 0 || len(f.Trees) != 2 {
			t.Fatalf("features: %+v", f)
		}
		if f.Trees[0].Row != 5 || f.Trees[0].Col != 7 || f.Trees[1].Radius != 5 {
			t.Errorf("trees: %+v", f.Trees)
		}
	})
	t.Run("blob", func(t *testing.T) {
		write("block.toml", blockScene)
		f, err := loadScene(ctx, "file://"+filepath.Join(dir, "block.toml"))
		if err != nil {
			t.Fatal(err)
		}
		if len(f.Buildings) != 1 || f.Buildings[0].Height != 15 {
			t.Errorf("features: %+v", f)
		}
	})
	t.Run("unknown key", func(t *testing.T) {
		p := write("typo.toml", "[[Buildings]]\nR1 = 1\nR2 = 2\nC1 = 1\nC2 = 2\nHieght = 3.0\n")
		if _, err := loadScene(ctx, p); err == nil {
			t.Error("unknown key should fail")
		}
	})
}

func TestCheckName(t *testing.T) {
	os.Setenv("DEMGEN_TEST_SUFFIX", "v2")
	defer os.Unsetenv("DEMGEN_TEST_SUFFIX")
	n, err := checkName("DTMName", "dtm_${DEMGEN_TEST_SUFFIX}")
	if err != nil || n != "dtm_v2" {
		t.Errorf("got %q, %v", n, err)
	}
	for _, bad := range []string{"", "a/b", `a\b`} {
		if _, err := checkName("DTMName", bad); err == nil {
			t.Errorf("%q should fail", bad)
		}
	}
}
