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
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// TIFF field types.
const (
	tiffASCII  = 2
	tiffShort  = 3
	tiffLong   = 4
	tiffDouble = 12
)

// TIFF and GeoTIFF tags.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagPlanarConfig     = 284
	tagSampleFormat     = 339
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	tagGDALMetadata     = 42112
	tagGDALNoData       = 42113
)

// GeoKeys.
const (
	keyModelType      = 1024
	keyRasterType     = 1025
	keyProjectedCS    = 3072
	keyProjLinearUnit = 3076

	modelTypeProjected = 1
	rasterPixelIsArea  = 1
	linearMeter        = 9001
)

const sampleFormatFloat = 3

// GeoTIFF encodes bands as uncompressed little-endian GeoTIFF files with
// float32 samples in a single strip. The no-data value and band
// statistics are stored in the GDAL private tags.
type GeoTIFF struct{}

// Extension returns ".tif".
func (GeoTIFF) Extension() string { return ".tif" }

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	data     []byte
}

func shorts(v ...uint16) []byte {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(b[2*i:], x)
	}
	return b
}

func longs(v ...uint32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], x)
	}
	return b
}

func doubles(v ...float64) []byte {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return b
}

func shortEntry(tag uint16, v ...uint16) ifdEntry {
	return ifdEntry{tag: tag, typ: tiffShort, count: uint32(len(v)), data: shorts(v...)}
}

func longEntry(tag uint16, v ...uint32) ifdEntry {
	return ifdEntry{tag: tag, typ: tiffLong, count: uint32(len(v)), data: longs(v...)}
}

func doubleEntry(tag uint16, v ...float64) ifdEntry {
	return ifdEntry{tag: tag, typ: tiffDouble, count: uint32(len(v)), data: doubles(v...)}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	d := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(d)), data: d}
}

// formatFloat formats v the way GDAL writes no-data values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// gdalMetadata returns the XML document GDAL stores in tag 42112.
func gdalMetadata(b *Band) (string, error) {
	type item struct {
		Name   string `xml:"name,attr"`
		Sample *int   `xml:"sample,attr"`
		Role   string `xml:"role,attr,omitempty"`
		Value  string `xml:",chardata"`
	}
	type doc struct {
		XMLName xml.Name `xml:"GDALMetadata"`
		Items   []item   `xml:"Item"`
	}
	var d doc
	for _, k := range b.metadataKeys() {
		d.Items = append(d.Items, item{Name: k, Value: b.Metadata[k]})
	}
	band0 := 0
	for _, s := range []struct {
		name string
		v    float64
	}{
		{"STATISTICS_MAXIMUM", b.Stats.Max},
		{"STATISTICS_MEAN", b.Stats.Mean},
		{"STATISTICS_MINIMUM", b.Stats.Min},
		{"STATISTICS_STDDEV", b.Stats.StdDev},
	} {
		d.Items = append(d.Items, item{Name: s.name, Sample: &band0, Value: formatFloat(s.v)})
	}
	if b.Description != "" {
		d.Items = append(d.Items, item{Name: "DESCRIPTION", Sample: &band0, Role: "description", Value: b.Description})
	}
	out, err := xml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("raster: encoding GDAL metadata: %w", err)
	}
	return string(out), nil
}

// Encode writes b to f as a GeoTIFF.
func (GeoTIFF) Encode(f File, b *Band) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.EPSG <= 0 || b.EPSG > math.MaxUint16 {
		return fmt.Errorf("raster: EPSG code %d cannot be stored in a GeoKey", b.EPSG)
	}
	gt := b.GeoTransform
	md, err := gdalMetadata(b)
	if err != nil {
		return err
	}
	stripBytes := uint32(4 * b.Width * b.Height)

	entries := []ifdEntry{
		longEntry(tagImageWidth, uint32(b.Width)),
		longEntry(tagImageLength, uint32(b.Height)),
		shortEntry(tagBitsPerSample, 32),
		shortEntry(tagCompression, 1),
		shortEntry(tagPhotometric, 1),
		longEntry(tagStripOffsets, 0), // Filled in once the layout is known.
		shortEntry(tagSamplesPerPixel, 1),
		longEntry(tagRowsPerStrip, uint32(b.Height)),
		longEntry(tagStripByteCounts, stripBytes),
		shortEntry(tagPlanarConfig, 1),
		shortEntry(tagSampleFormat, sampleFormatFloat),
		doubleEntry(tagModelPixelScale, gt[1], -gt[5], 0),
		doubleEntry(tagModelTiepoint, 0, 0, 0, gt[0], gt[3], 0),
		shortEntry(tagGeoKeyDirectory,
			1, 1, 0, 4,
			keyModelType, 0, 1, modelTypeProjected,
			keyRasterType, 0, 1, rasterPixelIsArea,
			keyProjectedCS, 0, 1, uint16(b.EPSG),
			keyProjLinearUnit, 0, 1, linearMeter,
		),
		asciiEntry(tagGDALMetadata, md),
		asciiEntry(tagGDALNoData, formatFloat(b.NoData)),
	}
	if b.Description != "" {
		entries = append(entries, asciiEntry(tagImageDescription, b.Description))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: header, IFD, out-of-line values, then the strip.
	const headerSize = 8
	ifdSize := uint32(2 + 12*len(entries) + 4)
	offset := headerSize + ifdSize
	offsets := make([]uint32, len(entries))
	var stripEntry int
	for i, e := range entries {
		if e.tag == tagStripOffsets {
			stripEntry = i
		}
		if len(e.data) > 4 {
			offsets[i] = offset
			offset += uint32(len(e.data))
			offset += offset % 2 // Values start on word boundaries.
		}
	}
	binary.LittleEndian.PutUint32(entries[stripEntry].data, offset)

	buf := new(bytes.Buffer)
	buf.Grow(int(offset + stripBytes))
	buf.WriteString("II")
	binary.Write(buf, binary.LittleEndian, uint16(42))
	binary.Write(buf, binary.LittleEndian, uint32(headerSize))

	binary.Write(buf, binary.LittleEndian, uint16(len(entries)))
	for i, e := range entries {
		binary.Write(buf, binary.LittleEndian, e.tag)
		binary.Write(buf, binary.LittleEndian, e.typ)
		binary.Write(buf, binary.LittleEndian, e.count)
		if len(e.data) > 4 {
			binary.Write(buf, binary.LittleEndian, offsets[i])
		} else {
			var v [4]byte
			copy(v[:], e.data)
			buf.Write(v[:])
		}
	}
	binary.Write(buf, binary.LittleEndian, uint32(0)) // No further IFDs.

	for _, e := range entries {
		if len(e.data) > 4 {
			buf.Write(e.data)
			if buf.Len()%2 != 0 {
				buf.WriteByte(0)
			}
		}
	}
	if uint32(buf.Len()) != offset {
		return fmt.Errorf("raster: GeoTIFF layout error: strip at %d but header ends at %d", offset, buf.Len())
	}
	var sample [4]byte
	for _, v := range b.Data {
		binary.LittleEndian.PutUint32(sample[:], math.Float32bits(float32(v)))
		buf.Write(sample[:])
	}
	if _, err := f.WriteAt(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("raster: writing GeoTIFF: %w", err)
	}
	return nil
}
