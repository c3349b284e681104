package extract

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"media-offload/internal/metadata"
	"media-offload/internal/tags"
)

// ProbeMode selects how a Prober reads a file.
type ProbeMode int

const (
	// ProbeEmbedded also extracts embedded streams such as GoPro GPMF tracks.
	ProbeEmbedded ProbeMode = iota
	// ProbePlain reads container tags only.
	ProbePlain
)

func (m ProbeMode) String() string {
	if m == ProbeEmbedded {
		return "embedded"
	}
	return "plain"
}

// Prober returns the flat tag set of a media file.
type Prober interface {
	Probe(path string, mode ProbeMode) (tags.Tags, error)
}

// VideoExtractor reads video metadata through a Prober.
type VideoExtractor struct {
	fs     afero.Fs
	prober Prober
	log    logrus.FieldLogger
}

// NewVideoExtractor returns a VideoExtractor.
func NewVideoExtractor(fs afero.Fs, prober Prober, log logrus.FieldLogger) *VideoExtractor {
	return &VideoExtractor{fs: fs, prober: prober, log: log}
}

// Extract probes the video at path in embedded mode, retrying in plain
// mode on failure. When both probes fail the record is built from an
// empty tag set.
func (v *VideoExtractor) Extract(path string) (metadata.MediaMetadata, error) {
	if _, err := v.fs.Stat(path); err != nil {
		return metadata.Unknown(path), &Error{Path: path, Reason: ReasonOpen, Err: err}
	}

	t, err := v.prober.Probe(path, ProbeEmbedded)
	if err != nil {
		v.log.WithField("path", path).WithError(err).Debug("Embedded probe failed, retrying in plain mode")
		t, err = v.prober.Probe(path, ProbePlain)
	}
	if err != nil {
		v.log.WithField("path", path).WithError(err).Warn("Could not probe video, continuing without metadata")
		t = tags.Tags{}
	}
	return metadata.FromVideo(path, t), nil
}
