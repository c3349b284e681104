package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"media-offload/internal/tags"
)

// videoDateFields lists the exiftool date tags in order of preference:
// QuickTime-qualified, then Keys-qualified, then generic names.
var videoDateFields = []string{
	"QuickTime:CreationDate",
	"QuickTime:CreateDate",
	"QuickTime:MediaCreateDate",
	"Keys:CreationDate",
	"Keys:CreateDate",
	"CreateDate",
	"CreationDate",
	"DateTimeOriginal",
	"MediaCreateDate",
}

var (
	gpsCoordinatesTags  = []string{"QuickTime:GPSCoordinates", "Keys:GPSCoordinates"}
	gpsLatitudeTags     = []string{"GPSLatitude", "GPS:GPSLatitude"}
	gpsLongitudeTags    = []string{"GPSLongitude", "GPS:GPSLongitude"}
	gpsLatitudeRefTags  = []string{"GPSLatitudeRef", "GPS:GPSLatitudeRef"}
	gpsLongitudeRefTags = []string{"GPSLongitudeRef", "GPS:GPSLongitudeRef"}

	cameraMakeTags     = []string{"Make", "QuickTime:Make", "Keys:Make"}
	cameraModelTags    = []string{"Model", "QuickTime:Model", "Keys:Model"}
	cameraSoftwareTags = []string{"Software", "QuickTime:Software", "Keys:Software", "CreatorTool"}
)

var (
	tzOffset = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)

	// dmsPattern matches `37 deg 46' 26.30"` with the quote marks optional.
	dmsPattern = regexp.MustCompile(`^(\d+)\s+deg\s+(\d+)\s*'?\s*([\d.]+)\s*"?`)
)

const (
	dateOnlyLayout = "2006-01-02"
	dateOnlyLength = len(dateOnlyLayout)
)

// videoDateLayouts are tried in order on a date string with its zone
// offset removed. The last three take fields without zero padding.
var videoDateLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006:1:2 15:4:5",
	"2006-1-2 15:4:5",
	"2006-1-2T15:4:5",
}

var (
	videoDateStrategies   = fieldStrategies(videoDateFields, videoDateField)
	dateStringStrategies  = append(layoutStrategies(videoDateLayouts), dateOnly)
	videoLocationStrategy = []strategy[tags.Tags, Location]{
		coordinatesTag(gpsCoordinatesTags[0]),
		coordinatesTag(gpsCoordinatesTags[1]),
		latLonTags,
	}
)

func layoutStrategies(layouts []string) []strategy[string, time.Time] {
	out := make([]strategy[string, time.Time], len(layouts))
	for i, l := range layouts {
		l := l
		out[i] = func(s string) (time.Time, error) {
			d, err := time.Parse(l, s)
			if err != nil {
				return time.Time{}, errSkip
			}
			return d, nil
		}
	}
	return out
}

// dateOnly salvages the date from a string no layout accepted: the text
// before a "T" or a space, or else the first ten characters, read as
// YYYY-MM-DD with colons allowed as separators.
func dateOnly(s string) (time.Time, error) {
	var part string
	switch {
	case strings.Contains(s, "T"):
		part, _, _ = strings.Cut(s, "T")
	case strings.Contains(s, " "):
		part, _, _ = strings.Cut(s, " ")
	case len(s) >= dateOnlyLength:
		part = s[:dateOnlyLength]
	default:
		part = s
	}
	if len(part) < dateOnlyLength {
		return time.Time{}, errSkip
	}
	if strings.Contains(part, ":") {
		dashed := strings.Replace(part, ":", "-", 2)
		if d, err := time.Parse(dateOnlyLayout, dashed[:dateOnlyLength]); err == nil {
			return d, nil
		}
	}
	if d, err := time.Parse(dateOnlyLayout, part[:dateOnlyLength]); err == nil {
		return d, nil
	}
	return time.Time{}, errSkip
}

// ParseVideoDateString parses one video date value. A trailing zone
// offset is discarded, not applied.
func ParseVideoDateString(s string) (time.Time, bool) {
	return firstOf(tzOffset.ReplaceAllString(s, ""), dateStringStrategies...)
}

func videoDateField(name string) strategy[tags.Tags, time.Time] {
	return func(t tags.Tags) (time.Time, error) {
		v, ok := t.Get(name)
		if !ok {
			return time.Time{}, errSkip
		}
		s, err := v.Text()
		if err != nil {
			return time.Time{}, errSkip
		}
		d, ok := ParseVideoDateString(s)
		if !ok {
			return time.Time{}, errSkip
		}
		return d, nil
	}
}

// ParseVideoDate returns the first usable date among the known video
// date tags.
func ParseVideoDate(t tags.Tags) (time.Time, bool) {
	return firstOf(t, videoDateStrategies...)
}

// coordinatesTag reads a "lat lon [alt]" string tag.
func coordinatesTag(name string) strategy[tags.Tags, Location] {
	return func(t tags.Tags) (Location, error) {
		v, ok := t.Get(name)
		if !ok {
			return Location{}, errSkip
		}
		s, err := v.Text()
		if err != nil {
			return Location{}, err
		}
		parts := strings.Fields(s)
		if len(parts) < 2 {
			return Location{}, errSkip
		}
		lat, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Location{}, errSkip
		}
		lon, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return Location{}, errSkip
		}
		return Location{Latitude: lat, Longitude: lon}, nil
	}
}

// latLonTags reads separate latitude and longitude tags, either as DMS
// strings or as plain decimals.
func latLonTags(t tags.Tags) (Location, error) {
	_, latV, ok := t.First(gpsLatitudeTags...)
	if !ok {
		return Location{}, errSkip
	}
	_, lonV, ok := t.First(gpsLongitudeTags...)
	if !ok {
		return Location{}, errSkip
	}
	latS, err := latV.Text()
	if err != nil {
		return Location{}, err
	}
	lonS, err := lonV.Text()
	if err != nil {
		return Location{}, err
	}

	latM := dmsPattern.FindStringSubmatch(latS)
	lonM := dmsPattern.FindStringSubmatch(lonS)
	if latM != nil && lonM != nil {
		lat, err := dmsFromMatch(latM)
		if err != nil {
			return Location{}, err
		}
		lon, err := dmsFromMatch(lonM)
		if err != nil {
			return Location{}, err
		}
		return Location{
			Latitude:  DMSToDecimal(lat, hemisphere(t, gpsLatitudeRefTags, DefaultLatitudeRef)),
			Longitude: DMSToDecimal(lon, hemisphere(t, gpsLongitudeRefTags, DefaultLongitudeRef)),
		}, nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return Location{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil {
		return Location{}, err
	}
	return Location{Latitude: lat, Longitude: lon}, nil
}

func dmsFromMatch(m []string) ([3]float64, error) {
	var dms [3]float64
	deg, err := strconv.Atoi(m[1])
	if err != nil {
		return dms, err
	}
	mins, err := strconv.Atoi(m[2])
	if err != nil {
		return dms, err
	}
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return dms, err
	}
	dms[0], dms[1], dms[2] = float64(deg), float64(mins), sec
	return dms, nil
}

// hemisphere returns the reference letter of the first present tag, so
// that exiftool's printed "South" reads as "S".
func hemisphere(t tags.Tags, names []string, def string) string {
	_, v, ok := t.First(names...)
	if !ok {
		return def
	}
	s, err := v.Text()
	if err != nil {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1])
}

// ParseVideoLocation tries the combined coordinates tags first, then the
// separate latitude/longitude tags. Any malformed value yields no location.
func ParseVideoLocation(t tags.Tags) (Location, bool) {
	return firstOf(t, videoLocationStrategy...)
}

// ParseVideoCamera takes, per attribute, the first present tag variant.
func ParseVideoCamera(t tags.Tags) CameraInfo {
	return CameraInfo{
		Make:     firstText(t, cameraMakeTags...),
		Model:    firstText(t, cameraModelTags...),
		Software: firstText(t, cameraSoftwareTags...),
	}
}

// FromVideo builds the record for a video at path.
func FromVideo(path string, t tags.Tags) MediaMetadata {
	m := Unknown(path)
	if len(t) == 0 {
		return m
	}
	if d, ok := ParseVideoDate(t); ok {
		m.DateTaken = &d
	}
	if loc, ok := ParseVideoLocation(t); ok {
		m.Location = &loc
	}
	m.setCamera(ParseVideoCamera(t))
	return m
}
