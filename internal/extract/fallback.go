package extract

import (
	"path/filepath"
	"regexp"
	"time"

	"github.com/djherbis/times"
	"github.com/spf13/afero"

	"media-offload/internal/metadata"
)

// DateFallback supplies a capture date for a file whose metadata has none.
type DateFallback func(path string) (time.Time, bool)

// filenamePatterns extract a date from a file name. Patterns are tried in
// order; first match wins.
var filenamePatterns = []struct {
	regex  *regexp.Regexp
	layout string
}{
	// DJI drone: DJI_20250619224111_0001_D.MP4
	{regexp.MustCompile(`DJI_(\d{8})`), "20060102"},

	// Sony video: 20250616_C0416.MP4
	{regexp.MustCompile(`^(\d{8})_C\d+`), "20060102"},

	// Timestamp: IMG_20250619_123456.jpg
	{regexp.MustCompile(`(\d{8})_\d{6}`), "20060102"},

	// ISO date: 2025-06-19_photo.jpg
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`), "2006-01-02"},

	// Compact date: 20250619_photo.jpg
	{regexp.MustCompile(`(\d{8})`), "20060102"},
}

// FilenameDate parses a date out of the base name of path.
func FilenameDate(path string) (time.Time, bool) {
	name := filepath.Base(path)
	for _, p := range filenamePatterns {
		m := p.regex.FindStringSubmatch(name)
		if len(m) < 2 {
			continue
		}
		if t, err := time.Parse(p.layout, m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FileDate returns the filesystem timestamp fallback. On the OS
// filesystem it prefers the birth time and falls back to the modification
// time; other filesystems only report a modification time. A failed stat
// yields no date.
func FileDate(fs afero.Fs) DateFallback {
	if _, ok := fs.(*afero.OsFs); ok {
		return func(path string) (time.Time, bool) {
			ts, err := times.Stat(path)
			if err != nil {
				return time.Time{}, false
			}
			if ts.HasBirthTime() {
				return metadata.WallClock(ts.BirthTime()), true
			}
			return metadata.WallClock(ts.ModTime()), true
		}
	}
	return func(path string) (time.Time, bool) {
		fi, err := fs.Stat(path)
		if err != nil {
			return time.Time{}, false
		}
		return metadata.WallClock(fi.ModTime()), true
	}
}
