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

// Command demgen is a command-line interface for generating synthetic
// terrain and surface elevation rasters.
package main

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/demgen/demgenutil"
	"github.com/spatialmodel/demgen/raster"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
}

func main() {
	if err := demgenutil.Root.Execute(); err != nil {
		logger := logrus.StandardLogger()
		if errors.Is(err, raster.ErrNoDriver) {
			logger.WithError(err).Errorf("no raster driver is available for the requested format; "+
				"set Format (or --Format) to one of: %s", strings.Join(raster.Drivers(), ", "))
			os.Exit(2)
		}
		logger.WithError(err).Error("demgen failed")
		os.Exit(1)
	}
}
