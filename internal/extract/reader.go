package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"media-offload/internal/metadata"
)

// Reader extracts the metadata of every file of one media kind in a
// directory.
type Reader struct {
	fs        afero.Fs
	kind      metadata.Kind
	extractor Extractor
	fallbacks []DateFallback
	log       logrus.FieldLogger
}

// NewReader returns a Reader. Fallbacks run in order for records without
// a date; the first one to produce a date wins.
func NewReader(fs afero.Fs, kind metadata.Kind, extractor Extractor, log logrus.FieldLogger, fallbacks ...DateFallback) *Reader {
	return &Reader{
		fs:        fs,
		kind:      kind,
		extractor: extractor,
		fallbacks: fallbacks,
		log:       log,
	}
}

// ValidateDir checks that dir exists and is a directory.
func ValidateDir(fs afero.Fs, dir string) error {
	fi, err := fs.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDir, dir)
	}
	return nil
}

// Read returns one record per allow-listed regular file directly inside
// dir, in directory listing order. Subdirectories are not descended.
// Files whose metadata cannot be extracted are recorded with no metadata.
func (r *Reader) Read(dir string) ([]metadata.MediaMetadata, error) {
	if err := ValidateDir(r.fs, dir); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var records []metadata.MediaMetadata
	for _, entry := range entries {
		if !r.kind.Allowed(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !r.isRegular(path) {
			continue
		}
		records = append(records, r.extract(path))
	}

	r.log.Infof("Read %d %s from %s", len(records), r.kind.Plural(), dir)
	return records, nil
}

// isRegular follows symlinks.
func (r *Reader) isRegular(path string) bool {
	fi, err := r.fs.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (r *Reader) extract(path string) metadata.MediaMetadata {
	m, err := r.extractor.Extract(path)
	if err != nil {
		r.log.WithField("path", path).WithError(err).Warnf("Could not read %s metadata", r.kind.Name)
		m = metadata.Unknown(path)
	}
	if m.DateTaken != nil {
		return m
	}
	for _, fallback := range r.fallbacks {
		if d, ok := fallback(path); ok {
			r.log.WithField("path", path).Debugf("Using fallback date %s", d.Format("2006-01-02"))
			return m.WithDate(d)
		}
	}
	return m
}
