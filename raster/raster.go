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

// Package raster writes single-band, geo-referenced float32 rasters.
package raster

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrNoDriver is returned when no encoder is registered for a format.
var ErrNoDriver = errors.New("raster: no driver for format")

// DefaultNoData is the no-data sentinel declared by default.
const DefaultNoData = -9999.0

// File is the destination of an encoder.
// *os.File satisfies it.
type File interface {
	io.ReaderAt
	io.WriterAt
}

// Statistics are the band statistics stored alongside the data.
type Statistics struct {
	Min, Max, Mean, StdDev float64
}

// Band is a single raster band plus its geo-referencing.
type Band struct {
	Width, Height int

	// Data holds Width*Height values in row-major order, first row north.
	Data []float64

	// GeoTransform is [x0, dx, 0, y0, 0, dy], where (x0, y0) is the
	// outer corner of the first cell.
	GeoTransform [6]float64

	// EPSG is the code of the projected coordinate system.
	EPSG int

	// Projection is the proj4 or WKT text of the coordinate system.
	Projection string

	NoData      float64
	Description string
	Stats       Statistics

	// Metadata holds extra dataset-level key/value pairs.
	Metadata map[string]string
}

// Validate checks that b is internally consistent.
func (b *Band) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("raster: band dimensions %dx%d should be positive", b.Width, b.Height)
	}
	if len(b.Data) != b.Width*b.Height {
		return fmt.Errorf("raster: band has %d values but %dx%d=%d are required",
			len(b.Data), b.Width, b.Height, b.Width*b.Height)
	}
	if b.GeoTransform[1] == 0 || b.GeoTransform[5] == 0 {
		return fmt.Errorf("raster: geotransform %v has a zero pixel size", b.GeoTransform)
	}
	if b.GeoTransform[2] != 0 || b.GeoTransform[4] != 0 {
		return fmt.Errorf("raster: rotated geotransform %v is not supported", b.GeoTransform)
	}
	return nil
}

// metadataKeys returns the keys of b.Metadata in sorted order.
func (b *Band) metadataKeys() []string {
	keys := make([]string, 0, len(b.Metadata))
	for k := range b.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// An Encoder writes a Band in a particular file format.
type Encoder interface {
	// Encode writes b to f, starting at offset zero.
	Encode(f File, b *Band) error

	// Extension returns the file name extension, including the dot.
	Extension() string
}

var drivers = map[string]Encoder{
	"gtiff":  GeoTIFF{},
	"netcdf": NetCDF{},
}

// Drivers returns the names of the available formats.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the encoder for the named format. Names are
// case-insensitive.
func Lookup(format string) (Encoder, error) {
	e, ok := drivers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w %q; available formats are %s", ErrNoDriver, format,
			strings.Join(Drivers(), ", "))
	}
	return e, nil
}

// WriteFile encodes b into a new file at path. If encoding fails, the
// partially written file is removed.
func WriteFile(path string, enc Encoder, b *Band) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("raster: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("raster: closing %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err = enc.Encode(f, b); err != nil {
		return fmt.Errorf("raster: writing %s: %w", path, err)
	}
	return nil
}
