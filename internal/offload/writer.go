package offload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"media-offload/internal/metadata"
)

const dirPerm = 0o755

// ErrSameFile is returned when a copy's destination is its own source,
// e.g. when the source directory lies inside the destination tree.
var ErrSameFile = errors.New("source and destination are the same file")

// Writer puts the files of one media kind into a destination directory,
// either as plain copies or as a single archive.
type Writer struct {
	fs   afero.Fs
	kind metadata.Kind
	log  logrus.FieldLogger
}

// NewWriter returns a Writer for kind.
func NewWriter(fs afero.Fs, kind metadata.Kind, log logrus.FieldLogger) *Writer {
	return &Writer{fs: fs, kind: kind, log: log}
}

// Kind returns the media kind the Writer archives.
func (w *Writer) Kind() metadata.Kind {
	return w.kind
}

// Save copies records into dir, then archives them when archive is set.
func (w *Writer) Save(records []metadata.MediaMetadata, dir string, archive bool) error {
	if archive {
		return w.Archive(records, dir)
	}
	return w.Copy(records, dir)
}

// EnsureDir creates dir and any missing parents.
func (w *Writer) EnsureDir(dir string) error {
	if err := w.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// Copy copies every file into dir, creating dir when missing. Existing
// files of the same name are overwritten. The first failure aborts.
func (w *Writer) Copy(records []metadata.MediaMetadata, dir string) error {
	if err := w.EnsureDir(dir); err != nil {
		return err
	}
	for _, m := range records {
		dst := filepath.Join(dir, filepath.Base(m.Path))
		if err := w.copyFile(m.Path, dst); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", m.Path, dir, err)
		}
		w.log.WithField("path", m.Path).Debugf("Copied to %s", dst)
	}
	return nil
}

// copyFile copies src to dst, keeping its permissions and modification time.
func (w *Writer) copyFile(src, dst string) error {
	srcFile, err := w.fs.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	fi, err := srcFile.Stat()
	if err != nil {
		return err
	}
	if w.sameFile(src, fi, dst) {
		return ErrSameFile
	}

	dstFile, err := w.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	if err := w.fs.Chmod(dst, fi.Mode().Perm()); err != nil {
		return err
	}
	return w.fs.Chtimes(dst, fi.ModTime(), fi.ModTime())
}

// sameFile reports whether dst already is src. os.SameFile only knows OS
// file infos, so other filesystems compare cleaned absolute paths.
func (w *Writer) sameFile(src string, srcInfo os.FileInfo, dst string) bool {
	dstInfo, err := w.fs.Stat(dst)
	if err != nil {
		return false
	}
	if os.SameFile(srcInfo, dstInfo) {
		return true
	}
	a, errA := filepath.Abs(src)
	b, errB := filepath.Abs(dst)
	if errA != nil || errB != nil {
		return filepath.Clean(src) == filepath.Clean(dst)
	}
	return a == b
}

// Archive copies records into dir, packs every file of the Writer's kind
// found in dir into a single archive there, then removes those files. If
// the archive cannot be written the copies are left in place.
func (w *Writer) Archive(records []metadata.MediaMetadata, dir string) error {
	if err := w.Copy(records, dir); err != nil {
		return err
	}

	archive := filepath.Join(dir, w.kind.ArchiveName)
	files, err := w.mediaFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to create archive at %s: %w", archive, err)
	}
	if err := w.writeArchive(archive, files); err != nil {
		return fmt.Errorf("failed to create archive at %s: %w", archive, err)
	}
	w.log.Debugf("Archived %d %s into %s", len(files), w.kind.Plural(), archive)

	// List again: the archive holds whatever is in dir now.
	files, err = w.mediaFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to clean up %s: %w", dir, err)
	}
	for _, f := range files {
		if err := w.fs.Remove(f); err != nil {
			return fmt.Errorf("failed to clean up %s: %w", dir, err)
		}
	}
	return nil
}

// mediaFiles lists the regular files in dir that belong to the Writer's kind.
func (w *Writer) mediaFiles(dir string) ([]string, error) {
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Mode().IsRegular() && w.kind.Allowed(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func (w *Writer) writeArchive(path string, files []string) error {
	f, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for _, name := range files {
		if err := w.addToArchive(zw, name); err != nil {
			zw.Close()
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (w *Writer) addToArchive(zw *zip.Writer, name string) error {
	src, err := w.fs.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(name)
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
