package extract

import (
	"sort"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"

	"media-offload/internal/tags"
)

// ExifTool is a Prober backed by long-running exiftool processes, one
// per ProbeMode, started on first use. Values are numeric (-n) and keys
// carry their family 1 group ("QuickTime:CreateDate"). Every grouped key
// is also reachable by its bare name, taken from the first group in
// sorted order.
type ExifTool struct {
	binary string

	mu    sync.Mutex
	procs map[ProbeMode]*exiftool.Exiftool
}

// NewExifTool returns a prober running binary, or exiftool from PATH when
// binary is empty.
func NewExifTool(binary string) *ExifTool {
	return &ExifTool{binary: binary, procs: map[ProbeMode]*exiftool.Exiftool{}}
}

func (e *ExifTool) process(mode ProbeMode) (*exiftool.Exiftool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if et, ok := e.procs[mode]; ok {
		return et, nil
	}
	opts := []func(*exiftool.Exiftool) error{
		exiftool.NoPrintConversion(),
		exiftool.PrintGroupNames("1"),
	}
	if mode == ProbeEmbedded {
		opts = append(opts, exiftool.ExtractEmbedded())
	}
	if e.binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(e.binary))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, err
	}
	e.procs[mode] = et
	return et, nil
}

// Probe implements Prober.
func (e *ExifTool) Probe(path string, mode ProbeMode) (tags.Tags, error) {
	et, err := e.process(mode)
	if err != nil {
		return nil, err
	}
	fms := et.ExtractMetadata(path)
	if len(fms) == 0 {
		return tags.Tags{}, nil
	}
	if fms[0].Err != nil {
		return nil, fms[0].Err
	}
	return fieldTags(fms[0].Fields), nil
}

// Close stops every started process.
func (e *ExifTool) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var first error
	for mode, et := range e.procs {
		if err := et.Close(); err != nil && first == nil {
			first = err
		}
		delete(e.procs, mode)
	}
	return first
}

func fieldTags(fields map[string]interface{}) tags.Tags {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := make(tags.Tags, len(fields))
	for _, k := range keys {
		t[k] = tags.FromAny(fields[k])
	}
	for _, k := range keys {
		_, bare, ok := strings.Cut(k, ":")
		if ok && !t.Has(bare) {
			t[bare] = t[k]
		}
	}
	return t
}
