// Package extract reads MediaMetadata from files on disk: EXIF for
// photos, exiftool for videos, plus the opt-in date fallbacks and the
// directory Reader that ties them together.
package extract

import (
	"media-offload/internal/metadata"
)

// Extractor reads the metadata of one file. A returned error is an *Error.
type Extractor interface {
	Extract(path string) (metadata.MediaMetadata, error)
}
