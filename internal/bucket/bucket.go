// Package bucket groups and orders MediaMetadata records by one attribute.
package bucket

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"media-offload/internal/metadata"
)

// GroupBy selects the attribute records are grouped or sorted by.
type GroupBy string

const (
	Software     GroupBy = "software"
	CameraMake   GroupBy = "camera_make"
	CameraModel  GroupBy = "camera_model"
	Year         GroupBy = "year"
	YearMonth    GroupBy = "year_month"
	YearMonthDay GroupBy = "year_month_day"
)

// Unknown is the key of records whose attribute is absent.
const Unknown = "Unknown"

// All lists every supported selector.
var All = []GroupBy{Software, CameraMake, CameraModel, Year, YearMonth, YearMonthDay}

// ParseGroupBy returns the selector named s.
func ParseGroupBy(s string) (GroupBy, error) {
	for _, g := range All {
		if string(g) == s {
			return g, nil
		}
	}
	names := make([]string, len(All))
	for i, g := range All {
		names[i] = string(g)
	}
	return "", fmt.Errorf("unsupported attribute %q (want one of %s)", s, strings.Join(names, ", "))
}

// Buckets maps a key to its records, in input order.
type Buckets map[string][]metadata.MediaMetadata

// Keys returns the keys in sorted order.
func (b Buckets) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dateKey(t *time.Time, by GroupBy) string {
	switch by {
	case Year:
		return fmt.Sprintf("%d", t.Year())
	case YearMonth:
		return fmt.Sprintf("%d-%02d", t.Year(), t.Month())
	}
	return fmt.Sprintf("%d-%02d-%02d", t.Year(), t.Month(), t.Day())
}

// value returns the attribute of m selected by by, and whether it is present.
func value(m metadata.MediaMetadata, by GroupBy) (string, bool, error) {
	var s *string
	switch by {
	case Software:
		s = m.Software
	case CameraMake:
		s = m.CameraMake
	case CameraModel:
		s = m.CameraModel
	case Year, YearMonth, YearMonthDay:
		if m.DateTaken == nil {
			return "", false, nil
		}
		return dateKey(m.DateTaken, by), true, nil
	default:
		return "", false, fmt.Errorf("unsupported attribute %q", by)
	}
	if s == nil {
		return "", false, nil
	}
	return *s, true, nil
}

// Key returns the bucket key of m, or Unknown when the attribute is absent.
func Key(m metadata.MediaMetadata, by GroupBy) (string, error) {
	v, ok, err := value(m, by)
	if err != nil {
		return "", err
	}
	if !ok {
		return Unknown, nil
	}
	return v, nil
}

// Grouper buckets and sorts records.
type Grouper struct {
	log logrus.FieldLogger
}

// New returns a Grouper.
func New(log logrus.FieldLogger) *Grouper {
	return &Grouper{log: log}
}

// Bucket groups records by attribute.
func (g *Grouper) Bucket(records []metadata.MediaMetadata, by GroupBy) (Buckets, error) {
	buckets := Buckets{}
	for _, m := range records {
		k, err := Key(m, by)
		if err != nil {
			return nil, err
		}
		buckets[k] = append(buckets[k], m)
	}
	g.log.Debugf("Grouped %d record(s) into %d bucket(s) by %s", len(records), len(buckets), by)
	return buckets, nil
}

// Sort returns records ordered by attribute. Present values come first in
// ascending order; records with an absent value follow in input order.
// Date attributes compare the full capture time.
func (g *Grouper) Sort(records []metadata.MediaMetadata, by GroupBy) ([]metadata.MediaMetadata, error) {
	if _, err := ParseGroupBy(string(by)); err != nil {
		return nil, err
	}
	out := make([]metadata.MediaMetadata, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j], by)
	})
	return out, nil
}

func less(a, b metadata.MediaMetadata, by GroupBy) bool {
	switch by {
	case Year, YearMonth, YearMonthDay:
		if a.DateTaken == nil || b.DateTaken == nil {
			return a.DateTaken != nil && b.DateTaken == nil
		}
		return a.DateTaken.Before(*b.DateTaken)
	}
	av, aok, _ := value(a, by)
	bv, bok, _ := value(b, by)
	if !aok || !bok {
		return aok && !bok
	}
	return av < bv
}
