package extract

import (
	"errors"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/spf13/afero"

	"media-offload/internal/metadata"
	"media-offload/internal/tags"
)

// gpsPointer is the IFD0 field that links to the GPS IFD.
const gpsPointer = string(exif.GPSInfoIFDPointer)

// gpsGroup is exiftool's family 1 group of GPS IFD tags.
const gpsGroup = "GPS"

// jpegExtensions are the photo files goexif reads on its own.
var jpegExtensions = map[string]bool{".jpg": true, ".jpeg": true}

// PhotoExtractor reads EXIF metadata with goexif. Containers goexif cannot
// read, such as HEIC and PNG, go to the prober when one is set.
type PhotoExtractor struct {
	fs     afero.Fs
	prober Prober
}

// NewPhotoExtractor returns a PhotoExtractor reading from fs. A nil prober
// leaves non-JPEG photos without metadata.
func NewPhotoExtractor(fs afero.Fs, prober Prober) *PhotoExtractor {
	return &PhotoExtractor{fs: fs, prober: prober}
}

// Extract decodes the EXIF block of the photo at path.
func (p *PhotoExtractor) Extract(path string) (metadata.MediaMetadata, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return metadata.Unknown(path), &Error{Path: path, Reason: ReasonOpen, Err: err}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		if p.prober != nil && !jpegExtensions[strings.ToLower(filepath.Ext(path))] {
			return p.probe(path, err)
		}
		return metadata.Unknown(path), &Error{Path: path, Reason: ReasonDecode, Err: err}
	}

	data, err := exifData(x)
	if err != nil {
		return metadata.Unknown(path), &Error{Path: path, Reason: ReasonDecode, Err: err}
	}
	return metadata.FromPhoto(path, data), nil
}

func (p *PhotoExtractor) probe(path string, decodeErr error) (metadata.MediaMetadata, error) {
	t, err := p.prober.Probe(path, ProbePlain)
	if err != nil {
		return metadata.Unknown(path), &Error{Path: path, Reason: ReasonDecode, Err: errors.Join(decodeErr, err)}
	}
	return metadata.FromPhoto(path, groupedExifData(t)), nil
}

// groupedExifData regroups an exiftool tag set into an EXIF block. Tags of
// the GPS group make up the GPS block, everything else is kept under its
// bare name. exiftool reports GPS coordinates in unsigned decimal degrees;
// they become a degrees-only triple so the hemisphere refs still apply.
func groupedExifData(t tags.Tags) metadata.ExifData {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := metadata.ExifData{Fields: tags.Tags{}}
	for _, key := range keys {
		v := t[key]
		group, name, grouped := strings.Cut(key, ":")
		if !grouped {
			name = key
		}
		if grouped && group == gpsGroup {
			if data.GPS == nil {
				data.GPS = tags.Tags{}
			}
			data.GPS[name] = gpsValue(name, v)
			continue
		}
		if !data.Fields.Has(name) {
			data.Fields[name] = v
		}
	}
	return data
}

func gpsValue(name string, v tags.Value) tags.Value {
	if name != metadata.TagGPSLatitude && name != metadata.TagGPSLongitude {
		return v
	}
	if deg, ok := v.Float(); ok {
		return tags.Numbers(deg, 0, 0)
	}
	return v
}

// tagWalker collects every decoded field into a tags.Tags.
type tagWalker struct {
	fields tags.Tags
}

func (w *tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.fields[string(name)] = tagValue(tag)
	return nil
}

// exifData flattens x. goexif keeps GPS fields alongside the others; they
// are split out into their own block when the GPS IFD pointer is present.
func exifData(x *exif.Exif) (metadata.ExifData, error) {
	w := &tagWalker{fields: tags.Tags{}}
	if err := x.Walk(w); err != nil {
		return metadata.ExifData{}, err
	}
	data := metadata.ExifData{Fields: w.fields}
	if !w.fields.Has(gpsPointer) {
		return data, nil
	}
	data.GPS = tags.Tags{}
	for name, v := range w.fields {
		if name != gpsPointer && strings.HasPrefix(name, "GPS") {
			data.GPS[name] = v
		}
	}
	return data, nil
}

// tagValue converts a TIFF tag. Strings stay strings, numeric tags become
// a number or a number list; anything else is kept opaque.
func tagValue(tag *tiff.Tag) tags.Value {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return tags.Opaque(tag)
		}
		return tags.String(s)
	case tiff.RatVal:
		return numericValue(tag, func(i int) (float64, error) {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return 0, err
			}
			if den == 0 {
				return math.NaN(), nil
			}
			return float64(num) / float64(den), nil
		})
	case tiff.IntVal:
		return numericValue(tag, func(i int) (float64, error) {
			n, err := tag.Int64(i)
			return float64(n), err
		})
	case tiff.FloatVal:
		return numericValue(tag, tag.Float)
	}
	return tags.Opaque(tag)
}

func numericValue(tag *tiff.Tag, at func(int) (float64, error)) tags.Value {
	nums := make([]float64, 0, tag.Count)
	for i := 0; i < int(tag.Count); i++ {
		f, err := at(i)
		if err != nil {
			return tags.Opaque(tag)
		}
		nums = append(nums, f)
	}
	if len(nums) == 1 {
		return tags.Number(nums[0])
	}
	return tags.Numbers(nums...)
}
