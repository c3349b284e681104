// Package fixture builds small media files for tests.
package fixture

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

// GPS is a GPS IFD. Coordinates are degrees, minutes and seconds.
type GPS struct {
	LatitudeRef  string
	Latitude     [3]float64
	LongitudeRef string
	Longitude    [3]float64
}

// Photo describes the EXIF block of a generated JPEG. Empty strings are
// left out.
type Photo struct {
	Make              string
	Model             string
	Software          string
	DateTime          string
	DateTimeOriginal  string
	DateTimeDigitized string
	GPS               *GPS
}

// NoEXIF is a JPEG without an APP1 segment.
var NoEXIF = []byte{0xFF, 0xD8, 0xFF, 0xD9}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5

	tagMake              = 0x010F
	tagModel             = 0x0110
	tagSoftware          = 0x0131
	tagDateTime          = 0x0132
	tagExifPointer       = 0x8769
	tagGPSPointer        = 0x8825
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004
	tagGPSLatitudeRef    = 0x0001
	tagGPSLatitude       = 0x0002
	tagGPSLongitudeRef   = 0x0003
	tagGPSLongitude      = 0x0004

	rationalScale = 10000
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

var le = binary.LittleEndian

func ascii(tag uint16, s string) []entry {
	if s == "" {
		return nil
	}
	return []entry{{tag: tag, typ: typeASCII, count: uint32(len(s) + 1), data: append([]byte(s), 0)}}
}

func rationals(tag uint16, vals [3]float64) entry {
	data := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		data = le.AppendUint32(data, uint32(math.Round(v*rationalScale)))
		data = le.AppendUint32(data, rationalScale)
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(vals)), data: data}
}

func long(tag uint16, v uint32) entry {
	return entry{tag: tag, typ: typeLong, count: 1, data: le.AppendUint32(nil, v)}
}

// TIFF returns the little-endian TIFF structure holding p.
func (p Photo) TIFF() []byte {
	var ifd0, exifIFD, gpsIFD []entry
	ifd0 = append(ifd0, ascii(tagMake, p.Make)...)
	ifd0 = append(ifd0, ascii(tagModel, p.Model)...)
	ifd0 = append(ifd0, ascii(tagSoftware, p.Software)...)
	ifd0 = append(ifd0, ascii(tagDateTime, p.DateTime)...)
	exifIFD = append(exifIFD, ascii(tagDateTimeOriginal, p.DateTimeOriginal)...)
	exifIFD = append(exifIFD, ascii(tagDateTimeDigitized, p.DateTimeDigitized)...)
	if g := p.GPS; g != nil {
		gpsIFD = append(gpsIFD, ascii(tagGPSLatitudeRef, g.LatitudeRef)...)
		gpsIFD = append(gpsIFD, rationals(tagGPSLatitude, g.Latitude))
		gpsIFD = append(gpsIFD, ascii(tagGPSLongitudeRef, g.LongitudeRef)...)
		gpsIFD = append(gpsIFD, rationals(tagGPSLongitude, g.Longitude))
	}

	size := func(n int) int { return 2 + 12*n + 4 }
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, long(tagExifPointer, 0))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, long(tagGPSPointer, 0))
	}
	exifOff := 8 + size(len(ifd0))
	gpsOff := exifOff
	if len(exifIFD) > 0 {
		gpsOff += size(len(exifIFD))
	}
	dataOff := gpsOff
	if len(gpsIFD) > 0 {
		dataOff += size(len(gpsIFD))
	}
	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifPointer:
			ifd0[i].data = le.AppendUint32(nil, uint32(exifOff))
		case tagGPSPointer:
			ifd0[i].data = le.AppendUint32(nil, uint32(gpsOff))
		}
	}

	var head, data bytes.Buffer
	head.WriteString("II")
	head.Write(le.AppendUint16(nil, 42))
	head.Write(le.AppendUint32(nil, 8))
	writeIFD := func(entries []entry) {
		sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
		head.Write(le.AppendUint16(nil, uint16(len(entries))))
		for _, e := range entries {
			head.Write(le.AppendUint16(nil, e.tag))
			head.Write(le.AppendUint16(nil, e.typ))
			head.Write(le.AppendUint32(nil, e.count))
			if len(e.data) <= 4 {
				v := make([]byte, 4)
				copy(v, e.data)
				head.Write(v)
				continue
			}
			head.Write(le.AppendUint32(nil, uint32(dataOff+data.Len())))
			data.Write(e.data)
			if data.Len()%2 == 1 {
				data.WriteByte(0)
			}
		}
		head.Write(le.AppendUint32(nil, 0))
	}
	writeIFD(ifd0)
	if len(exifIFD) > 0 {
		writeIFD(exifIFD)
	}
	if len(gpsIFD) > 0 {
		writeIFD(gpsIFD)
	}
	return append(head.Bytes(), data.Bytes()...)
}

// JPEG wraps the TIFF structure in an APP1 segment of a minimal JPEG.
func (p Photo) JPEG() []byte {
	payload := append([]byte("Exif\x00\x00"), p.TIFF()...)
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	b.Write(binary.BigEndian.AppendUint16(nil, uint16(len(payload)+2)))
	b.Write(payload)
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}
