// Package offload moves media out of a source directory into a
// destination tree partitioned by capture year and month.
package offload

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"media-offload/internal/bucket"
	"media-offload/internal/metadata"
)

// UnknownDir holds files whose capture month could not be determined.
const UnknownDir = "unknown"

// RecordReader lists the media records of a directory.
type RecordReader interface {
	Read(dir string) ([]metadata.MediaMetadata, error)
}

// Options control one offload run.
type Options struct {
	// Archive packs each destination directory into a single archive.
	Archive bool
	// SkipUnknown drops files without a usable date instead of writing
	// them to UnknownDir.
	SkipUnknown bool
	// DryRun logs the planned layout and writes nothing.
	DryRun bool
}

// Summary counts the outcome of a run.
type Summary struct {
	Total         int
	Written       int
	Unknown       int
	InvalidFormat int
	Skipped       int
}

// Offloader reads, buckets and writes one media kind.
type Offloader struct {
	reader  RecordReader
	grouper *bucket.Grouper
	writer  *Writer
	log     logrus.FieldLogger
}

// New returns an Offloader.
func New(reader RecordReader, grouper *bucket.Grouper, writer *Writer, log logrus.FieldLogger) *Offloader {
	return &Offloader{reader: reader, grouper: grouper, writer: writer, log: log}
}

// parseYearMonth splits a "YYYY-MM" bucket key.
func parseYearMonth(key string) (year, month int, ok bool) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return year, month, true
}

// DestinationFor returns the directory, relative to the destination
// root, for a year_month bucket key. Keys that are not a year and a month
// map to UnknownDir with ok false.
func DestinationFor(key string) (dir string, ok bool) {
	year, month, ok := parseYearMonth(key)
	if !ok {
		return UnknownDir, false
	}
	return fmt.Sprintf("year=%d/month=%02d", year, month), true
}

// plan is the set of files headed for each destination directory.
type plan struct {
	dirs  []string
	files map[string][]metadata.MediaMetadata
}

func (p *plan) add(dir string, records []metadata.MediaMetadata) {
	if _, ok := p.files[dir]; !ok {
		p.dirs = append(p.dirs, dir)
	}
	p.files[dir] = append(p.files[dir], records...)
}

// Offload reads src, groups its files by capture month and writes each
// group under dst. Reading a bad file never fails the run; a write
// failure does.
func (o *Offloader) Offload(src, dst string, opts Options) (Summary, error) {
	kind := o.writer.Kind()

	records, err := o.reader.Read(src)
	if err != nil {
		return Summary{}, err
	}
	if !opts.DryRun {
		if err := o.writer.EnsureDir(dst); err != nil {
			return Summary{}, err
		}
	}
	sum := Summary{Total: len(records)}
	if len(records) == 0 {
		o.log.Infof("No %s found in %s", kind.Plural(), src)
		return sum, nil
	}

	buckets, err := o.grouper.Bucket(records, bucket.YearMonth)
	if err != nil {
		return sum, err
	}

	p := &plan{files: map[string][]metadata.MediaMetadata{}}
	for _, key := range buckets.Keys() {
		group := buckets[key]
		dir, ok := DestinationFor(key)
		if !ok {
			reason := "invalid date format"
			if key == bucket.Unknown {
				reason = "unknown date"
				sum.Unknown += len(group)
			} else {
				sum.InvalidFormat += len(group)
			}
			if opts.SkipUnknown {
				for _, m := range group {
					o.log.WithFields(logrus.Fields{"path": m.Path, "reason": reason}).Info("Skipping file")
				}
				sum.Skipped += len(group)
				continue
			}
		}
		p.add(dir, group)
	}

	for _, dir := range p.dirs {
		group := p.files[dir]
		target := filepath.Join(dst, dir)
		if opts.DryRun {
			for _, m := range group {
				o.log.WithField("path", m.Path).Infof("[DRY RUN] Would offload to %s", target)
			}
			continue
		}
		o.log.Infof("Offloading %d %s to %s", len(group), kind.Plural(), target)
		if err := o.writer.Save(group, target, opts.Archive); err != nil {
			return sum, err
		}
		sum.Written += len(group)
	}

	o.log.WithFields(logrus.Fields{
		"total":          sum.Total,
		"written":        sum.Written,
		"unknown":        sum.Unknown,
		"invalid_format": sum.InvalidFormat,
		"skipped":        sum.Skipped,
	}).Infof("Finished offloading %s", kind.Plural())
	return sum, nil
}
