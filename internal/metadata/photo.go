package metadata

import (
	"time"

	"media-offload/internal/tags"
)

// ExifData is a decoded EXIF block. Fields holds every tag by name; GPS
// holds the tags of the GPS IFD and is nil when the image has none.
type ExifData struct {
	Fields tags.Tags
	GPS    tags.Tags
}

// EXIF tag names read by the photo parsers.
const (
	TagGPSLatitudeRef  = "GPSLatitudeRef"
	TagGPSLatitude     = "GPSLatitude"
	TagGPSLongitudeRef = "GPSLongitudeRef"
	TagGPSLongitude    = "GPSLongitude"

	// exifDateLayout also accepts fields that are not zero padded.
	exifDateLayout = "2006:1:2 15:4:5"
)

// photoDateFields lists the EXIF date tags in order of preference.
var photoDateFields = []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"}

var photoDateStrategies = fieldStrategies(photoDateFields, exifDateField)

func fieldStrategies[Out any](names []string, fn func(string) strategy[tags.Tags, Out]) []strategy[tags.Tags, Out] {
	out := make([]strategy[tags.Tags, Out], len(names))
	for i, n := range names {
		out[i] = fn(n)
	}
	return out
}

// exifDateField parses a "YYYY:MM:DD HH:MM:SS" string tag. A missing,
// non-string or malformed tag defers to the next field.
func exifDateField(name string) strategy[tags.Tags, time.Time] {
	return func(t tags.Tags) (time.Time, error) {
		v, ok := t.Get(name)
		if !ok {
			return time.Time{}, errSkip
		}
		s, ok := v.Str()
		if !ok {
			return time.Time{}, errSkip
		}
		d, err := time.Parse(exifDateLayout, s)
		if err != nil {
			return time.Time{}, errSkip
		}
		return d, nil
	}
}

// ParsePhotoDate returns the capture date of a photo from its EXIF tags,
// preferring DateTimeOriginal, then DateTimeDigitized, then DateTime.
func ParsePhotoDate(fields tags.Tags) (time.Time, bool) {
	return firstOf(fields, photoDateStrategies...)
}

// ParsePhotoLocation reads the GPS IFD. Missing hemisphere references
// default to north and east; a missing or malformed coordinate yields no
// location.
func ParsePhotoLocation(x ExifData) (Location, bool) {
	if x.GPS == nil {
		return Location{}, false
	}
	lat, ok := gpsTriple(x.GPS, TagGPSLatitude)
	if !ok {
		return Location{}, false
	}
	lon, ok := gpsTriple(x.GPS, TagGPSLongitude)
	if !ok {
		return Location{}, false
	}
	return Location{
		Latitude:  DMSToDecimal(lat, exifRef(x.GPS, TagGPSLatitudeRef, DefaultLatitudeRef)),
		Longitude: DMSToDecimal(lon, exifRef(x.GPS, TagGPSLongitudeRef, DefaultLongitudeRef)),
	}, true
}

func gpsTriple(gps tags.Tags, name string) ([3]float64, bool) {
	v, ok := gps.Get(name)
	if !ok {
		return [3]float64{}, false
	}
	return v.Triple()
}

func exifRef(gps tags.Tags, name, def string) string {
	v, ok := gps.Get(name)
	if !ok {
		return def
	}
	s, err := v.Text()
	if err != nil {
		return ""
	}
	return s
}

// ParsePhotoCamera reads Make, Model and Software. Non-string values are
// converted to their text form.
func ParsePhotoCamera(fields tags.Tags) CameraInfo {
	return CameraInfo{
		Make:     firstText(fields, "Make"),
		Model:    firstText(fields, "Model"),
		Software: firstText(fields, "Software"),
	}
}

func firstText(t tags.Tags, names ...string) *string {
	_, v, ok := t.First(names...)
	if !ok {
		return nil
	}
	s, err := v.Text()
	if err != nil {
		return nil
	}
	return &s
}

// FromPhoto builds the record for a photo at path.
func FromPhoto(path string, x ExifData) MediaMetadata {
	m := Unknown(path)
	if len(x.Fields) == 0 && x.GPS == nil {
		return m
	}
	if d, ok := ParsePhotoDate(x.Fields); ok {
		m.DateTaken = &d
	}
	if loc, ok := ParsePhotoLocation(x); ok {
		m.Location = &loc
	}
	m.setCamera(ParsePhotoCamera(x.Fields))
	return m
}
