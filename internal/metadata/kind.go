package metadata

import (
	"path/filepath"
	"strings"
)

// Kind describes one family of media files: which extensions belong to it
// and how its archives are named.
type Kind struct {
	Name        string
	Extensions  map[string]bool
	ArchiveName string
}

var (
	// Photo files are read with an EXIF decoder.
	Photo = Kind{
		Name: "photo",
		Extensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".heic": true,
			".heif": true,
		},
		ArchiveName: "photos.zip",
	}

	// Video files are read with exiftool.
	Video = Kind{
		Name: "video",
		Extensions: map[string]bool{
			".mov": true,
			".mp4": true,
		},
		ArchiveName: "videos.zip",
	}
)

// Allowed reports whether path has one of the kind's extensions, ignoring case.
func (k Kind) Allowed(path string) bool {
	return k.Extensions[strings.ToLower(filepath.Ext(path))]
}

// Plural returns the kind's name followed by "(s)", for log lines.
func (k Kind) Plural() string {
	return k.Name + "(s)"
}
