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
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/demgen"
	"github.com/spatialmodel/demgen/cloud"
	"github.com/spatialmodel/demgen/raster"
	"github.com/spf13/cast"
)

// SceneConfig unmarshals a viper configuration for a scene. Features
// are read from the Scene.File option if it is set.
func SceneConfig(ctx context.Context, cfg *viper.Viper) (*demgen.Config, error) {
	c := &demgen.Config{
		Rows: cfg.GetInt("Grid.Height"),
		Cols: cfg.GetInt("Grid.Width"),
		Placement: demgen.NorthUp(
			cfg.GetFloat64("Grid.OriginX"),
			cfg.GetFloat64("Grid.OriginY"),
			cfg.GetFloat64("Grid.PixelSize"),
			cfg.GetInt("Grid.EPSG"),
			os.ExpandEnv(cfg.GetString("Grid.Projection")),
		),
		Terrain: demgen.TerrainParams{
			Base:           cfg.GetFloat64("Terrain.Base"),
			HillAmplitude:  cfg.GetFloat64("Terrain.HillAmplitude"),
			HillPeriod:     cfg.GetFloat64("Terrain.HillPeriod"),
			RidgeAmplitude: cfg.GetFloat64("Terrain.RidgeAmplitude"),
			RidgePeriod:    cfg.GetFloat64("Terrain.RidgePeriod"),
			SlopeAmplitude: cfg.GetFloat64("Terrain.SlopeAmplitude"),
			SlopePeriod:    cfg.GetFloat64("Terrain.SlopePeriod"),
			NoiseStdDev:    cfg.GetFloat64("Terrain.NoiseStdDev"),
			AxisExtent:     cfg.GetFloat64("Terrain.AxisExtent"),
			Expression:     strings.TrimSpace(cfg.GetString("Terrain.Expression")),

			RoughnessAmplitude: cfg.GetFloat64("Terrain.RoughnessAmplitude"),
			RoughnessScale:     cfg.GetFloat64("Terrain.RoughnessScale"),
		},
		ObjectThreshold: cfg.GetFloat64("Scene.ObjectThreshold"),
		NoData:          cfg.GetFloat64("NoData"),
	}

	ints := []int{c.Cols, c.Rows}
	varNames := []string{"Grid.Width", "Grid.Height"}
	for i, v := range ints {
		if v <= 0 {
			return nil, fmt.Errorf("parsing grid configuration: %s=%d but should be >0", varNames[i], v)
		}
	}
	if v := cfg.GetFloat64("Grid.PixelSize"); !(v > 0) {
		return nil, fmt.Errorf("parsing grid configuration: Grid.PixelSize=%g but should be >0", v)
	}
	if c.Placement.Projection == "" {
		return nil, fmt.Errorf("parsing grid configuration: you need to specify the grid projection " +
			"in the 'Grid.Projection' configuration variable")
	}
	// Seeds set through the environment arrive as strings.
	seed, err := cast.ToInt64E(cfg.Get("Terrain.Seed"))
	if err != nil {
		return nil, fmt.Errorf("parsing terrain configuration: Terrain.Seed: %v", err)
	}
	if seed < 0 {
		return nil, fmt.Errorf("parsing terrain configuration: Terrain.Seed=%d but should be >=0", seed)
	}
	c.Seed = uint64(seed)

	if f := os.ExpandEnv(cfg.GetString("Scene.File")); f != "" {
		features, err := loadScene(ctx, f)
		if err != nil {
			return nil, err
		}
		c.Features = features
	} else {
		c.Features = demgen.DefaultFeatures()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadScene reads the buildings and trees listed in the TOML file at
// address, which may be a local path or a blob address.
func loadScene(ctx context.Context, address string) (demgen.Features, error) {
	var b []byte
	var err error
	if cloud.IsBlob(address) {
		b, err = readBlob(ctx, address)
	} else {
		b, err = os.ReadFile(address)
	}
	if err != nil {
		return demgen.Features{}, fmt.Errorf("demgen: reading scene file: %v", err)
	}
	var f demgen.Features
	md, err := toml.Decode(string(b), &f)
	if err != nil {
		return demgen.Features{}, fmt.Errorf("demgen: parsing scene file %s: %v", address, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return demgen.Features{}, fmt.Errorf("demgen: scene file %s has unknown keys %v", address, undecoded)
	}
	return f, nil
}

// readBlob returns the contents of the blob at address, for example
// 'gs://bucket/scenes/block.toml'.
func readBlob(ctx context.Context, address string) ([]byte, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	loc, err := cloud.ParseLocation(u.Scheme + "://" + u.Host + path.Dir(u.Path))
	if err != nil {
		return nil, err
	}
	bucket, err := cloud.OpenBucket(ctx, loc.Bucket)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	return cloud.ReadBlob(ctx, bucket, loc.Key(path.Base(u.Path)))
}

// checkFormat returns the raster encoder for the given format name.
func checkFormat(format string) (raster.Encoder, error) {
	return raster.Lookup(strings.TrimSpace(os.ExpandEnv(format)))
}

// checkOutputDir makes sure that the output directory is specified, and
// expands any environment variables. Blob locations are checked by
// opening the bucket.
func checkOutputDir(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf(`you need to specify an output directory configuration variable (for example: OutputDir="test_data")`)
	}
	dir = os.ExpandEnv(dir)
	if cloud.IsBlob(dir) {
		loc, err := cloud.ParseLocation(dir)
		if err != nil {
			return dir, err
		}
		bucket, err := cloud.OpenBucket(ctx, loc.Bucket)
		if err != nil {
			return dir, fmt.Errorf("demgen: error when checking OutputDir location: %v", err)
		}
		bucket.Close()
	}
	return dir, nil
}

// checkName expands any environment variables in an output file name
// and makes sure that it is a bare name.
func checkName(option, name string) (string, error) {
	name = os.ExpandEnv(name)
	if name == "" {
		return "", fmt.Errorf("you need to specify the %s configuration variable", option)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("the %s configuration variable should be a file name without a directory, but is `%s`", option, name)
	}
	return name, nil
}
