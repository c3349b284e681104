// Package metadata turns raw photo and video tag sets into MediaMetadata
// records: capture date, GPS location and camera information.
package metadata

import (
	"time"
)

// Location is a pair of signed decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// CameraInfo holds the optional make, model and software strings.
type CameraInfo struct {
	Make     *string
	Model    *string
	Software *string
}

// MediaMetadata describes one photo or video file. Nil fields are unknown.
type MediaMetadata struct {
	Path        string
	DateTaken   *time.Time
	Location    *Location
	CameraMake  *string
	CameraModel *string
	Software    *string
}

// Unknown returns a record for path with every attribute absent.
func Unknown(path string) MediaMetadata {
	return MediaMetadata{Path: path}
}

// WithDate returns a copy of m with the capture date set.
func (m MediaMetadata) WithDate(t time.Time) MediaMetadata {
	m.DateTaken = &t
	return m
}

func (m *MediaMetadata) setCamera(cam CameraInfo) {
	m.CameraMake = cam.Make
	m.CameraModel = cam.Model
	m.Software = cam.Software
}

// WallClock drops the zone of t, keeping the local wall-clock reading.
// Capture dates never carry a zone.
func WallClock(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}
