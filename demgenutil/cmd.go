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
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/demgen"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to demgen.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages written to
              standard error: one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Grid.Width",
			usage: `
              Grid.Width is the number of raster columns.`,
			defaultVal: 200,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Grid.Height",
			usage: `
              Grid.Height is the number of raster rows.`,
			defaultVal: 200,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Grid.PixelSize",
			usage: `
              Grid.PixelSize is the edge length of a square cell, in the
              units of Grid.Projection (typically meters).`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Grid.OriginX",
			usage: `
              Grid.OriginX is the X coordinate of the upper-left corner
              of the grid.`,
			defaultVal: 2683000.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Grid.OriginY",
			usage: `
              Grid.OriginY is the Y coordinate of the upper-left corner
              of the grid. Rows run southward from it.`,
			defaultVal: 1248000.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Grid.EPSG",
			usage: `
              Grid.EPSG is the EPSG code of the grid's coordinate reference
              system. It is written to the raster georeferencing.`,
			defaultVal: 2056,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Grid.Projection",
			usage: `
              Grid.Projection is the proj4 or WKT definition matching
              Grid.EPSG.`,
			defaultVal: demgen.DefaultProjection,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.Base",
			usage: `
              Terrain.Base is the mean terrain elevation in meters.`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.HillAmplitude",
			usage: `
              Terrain.HillAmplitude is the amplitude of the sin(X/p)*cos(Y/p)
              hill pattern in meters.`,
			defaultVal: 5.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.HillPeriod",
			usage: `
              Terrain.HillPeriod is the divisor p of the hill pattern.`,
			defaultVal: 3.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.RidgeAmplitude",
			usage: `
              Terrain.RidgeAmplitude is the amplitude of the sin(X/p) ridges
              in meters.`,
			defaultVal: 3.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.RidgePeriod",
			usage: `
              Terrain.RidgePeriod is the divisor p of the ridges.`,
			defaultVal: 5.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.SlopeAmplitude",
			usage: `
              Terrain.SlopeAmplitude is the amplitude of the cos(Y/p) slope
              in meters.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.SlopePeriod",
			usage: `
              Terrain.SlopePeriod is the divisor p of the slope.`,
			defaultVal: 4.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.NoiseStdDev",
			usage: `
              Terrain.NoiseStdDev is the standard deviation of the Gaussian
              noise added to every cell, in meters. Zero disables the noise.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.AxisExtent",
			usage: `
              Terrain.AxisExtent is the upper end of the X and Y coordinate
              ranges the relief is evaluated over.`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.RoughnessAmplitude",
			usage: `
              Terrain.RoughnessAmplitude is the amplitude, in meters, of a
              seeded OpenSimplex noise layer added to the relief. Zero
              disables it.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.RoughnessScale",
			usage: `
              Terrain.RoughnessScale is the feature size of the roughness
              layer in the units of the X and Y coordinate ranges.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.Expression",
			usage: `
              Terrain.Expression, if set, replaces the built-in relief.
              It may use the variables X and Y and the functions sin, cos,
              exp, sqrt and abs. For example: "100 + 2*sin(X) + Y".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Terrain.Seed",
			usage: `
              Terrain.Seed seeds the noise generator. Runs with the same
              seed and configuration produce identical rasters.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Scene.File",
			usage: `
              Scene.File is the location of a TOML file listing
              [[Buildings]] and [[Trees]] to place on the terrain. It may
              be a local path or a blob address (gs://, s3:// or file://).
              If empty, the built-in scene of five buildings and six trees
              is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Scene.ObjectThreshold",
			usage: `
              Scene.ObjectThreshold is the height above the terrain, in
              meters, above which a cell counts as part of an object.`,
			defaultVal: demgen.DefaultObjectThreshold,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "NoData",
			usage: `
              NoData is the value declared as missing data in the output
              rasters.`,
			defaultVal: -9999.0,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the output files are written to.
              It is created if it does not exist. It may also be a blob
              address such as gs://bucket/dir, in which case the files are
              written locally first and then uploaded.`,
			shorthand:  "o",
			defaultVal: "test_data",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Format",
			usage: `
              Format is the raster driver: gtiff or netcdf.`,
			shorthand:  "f",
			defaultVal: "gtiff",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "DTMName",
			usage: `
              DTMName is the terrain file name, without extension.`,
			defaultVal: "test_dtm",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "DSMName",
			usage: `
              DSMName is the surface file name, without extension.`,
			defaultVal: "test_dsm",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Footprints",
			usage: `
              Footprints specifies whether to write the building and tree
              outlines to a shapefile named FootprintName.shp.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "FootprintName",
			usage: `
              FootprintName is the footprint shapefile name, without
              extension.`,
			defaultVal: "test_features",
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
		{
			name: "Preview",
			usage: `
              Preview specifies whether to write PNG images of the object
              heights and of a cross section through the scene.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{generateCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("DEMGEN")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(generateCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("demgen: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// setLogLevel sets the level of the standard logrus logger.
func setLogLevel() error {
	lvl, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("demgen: LogLevel: %v", err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "demgen",
	Short: "A synthetic elevation model generator.",
	Long: `demgen creates a co-registered pair of synthetic elevation rasters: a
bare-earth digital terrain model (DTM) and a digital surface model (DSM) that
adds buildings and trees to it. The rasters are intended as test input for
shadow and visibility analyses.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'DEMGEN_var' where 'var' is the
name of the variable to be set, with dots replaced by underscores
(for example DEMGEN_GRID_WIDTH). Path variables may contain environment
variables within them.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogLevel()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of demgen.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "demgen v%s\n", demgen.Version)
	},
	DisableAutoGenTag: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the DTM and DSM rasters",
	Long: `generate creates the terrain and surface rasters described by the
configuration, writes them to OutputDir and prints summary statistics.
Refer to the flags below for configuration options and default settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Generate(Cfg, cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}
