package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrNotExist is returned when a source directory does not exist.
	ErrNotExist = errors.New("source directory does not exist")
	// ErrNotDir is returned when a source path is not a directory.
	ErrNotDir = errors.New("source path is not a directory")
)

// Reason tags why metadata could not be extracted from a file.
type Reason string

const (
	ReasonOpen   Reason = "open"
	ReasonDecode Reason = "decode"
)

// Error is a per-file extraction failure. Readers recover from it by
// recording the file with no metadata.
type Error struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Reason, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
