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

package raster

import (
	"fmt"
	"strings"

	"github.com/ctessum/cdf"
)

// NetCDF encodes bands as classic NetCDF files following the CF-1.6
// conventions. The band is stored in the float32 variable "elevation"
// with dimensions (y, x), and the cell-center coordinates in the
// variables "x" and "y".
type NetCDF struct{}

// Extension returns ".nc".
func (NetCDF) Extension() string { return ".nc" }

// ElevationVar is the name of the NetCDF variable holding the band.
const ElevationVar = "elevation"

// Encode writes b to f as a NetCDF file.
func (NetCDF) Encode(f File, b *Band) error {
	if err := b.Validate(); err != nil {
		return err
	}
	gt := b.GeoTransform
	xs := make([]float64, b.Width)
	for i := range xs {
		xs[i] = gt[0] + (float64(i)+0.5)*gt[1]
	}
	ys := make([]float64, b.Height)
	for j := range ys {
		ys[j] = gt[3] + (float64(j)+0.5)*gt[5]
	}

	h := cdf.NewHeader([]string{"y", "x"}, []int{b.Height, b.Width})
	h.AddAttribute("", "Conventions", "CF-1.6")
	if b.Description != "" {
		h.AddAttribute("", "title", b.Description)
	}
	if b.Projection != "" {
		h.AddAttribute("", "spatial_ref", b.Projection)
	}
	h.AddAttribute("", "epsg_code", []int32{int32(b.EPSG)})
	gts := make([]string, len(gt))
	for i, v := range gt {
		gts[i] = formatFloat(v)
	}
	h.AddAttribute("", "GeoTransform", strings.Join(gts, " "))
	for _, k := range b.metadataKeys() {
		h.AddAttribute("", k, b.Metadata[k])
	}

	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddAttribute("x", "standard_name", "projection_x_coordinate")
	h.AddAttribute("x", "units", "m")
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddAttribute("y", "standard_name", "projection_y_coordinate")
	h.AddAttribute("y", "units", "m")

	h.AddVariable(ElevationVar, []string{"y", "x"}, []float32{0})
	if b.Description != "" {
		h.AddAttribute(ElevationVar, "long_name", b.Description)
	}
	h.AddAttribute(ElevationVar, "units", "m")
	h.AddAttribute(ElevationVar, "_FillValue", []float32{float32(b.NoData)})
	h.AddAttribute(ElevationVar, "actual_range", []float32{float32(b.Stats.Min), float32(b.Stats.Max)})
	h.AddAttribute(ElevationVar, "STATISTICS_MINIMUM", []float64{b.Stats.Min})
	h.AddAttribute(ElevationVar, "STATISTICS_MAXIMUM", []float64{b.Stats.Max})
	h.AddAttribute(ElevationVar, "STATISTICS_MEAN", []float64{b.Stats.Mean})
	h.AddAttribute(ElevationVar, "STATISTICS_STDDEV", []float64{b.Stats.StdDev})
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("raster: invalid NetCDF header: %v", errs)
	}

	cf, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("raster: creating NetCDF file: %w", err)
	}
	data32 := make([]float32, len(b.Data))
	for i, v := range b.Data {
		data32[i] = float32(v)
	}
	for _, v := range []struct {
		name string
		data interface{}
	}{
		{"x", xs},
		{"y", ys},
		{ElevationVar, data32},
	} {
		end := cf.Header.Lengths(v.name)
		start := make([]int, len(end))
		w := cf.Writer(v.name, start, end)
		if _, err := w.Write(v.data); err != nil {
			return fmt.Errorf("raster: writing NetCDF variable %s: %w", v.name, err)
		}
	}
	return nil
}
