package offload

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-offload/internal/bucket"
	"media-offload/internal/extract"
	"media-offload/internal/fixture"
	"media-offload/internal/metadata"
)

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func photo(date string) []byte {
	return fixture.Photo{DateTimeOriginal: date}.JPEG()
}

func newOffloader(fs afero.Fs, log logrus.FieldLogger) *Offloader {
	reader := extract.NewReader(fs, metadata.Photo, extract.NewPhotoExtractor(fs, nil), log)
	return New(reader, bucket.New(log), NewWriter(fs, metadata.Photo, log), log)
}

// tree lists every file under root, relative to it.
func tree(t *testing.T, fs afero.Fs, root string) []string {
	t.Helper()
	var files []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, strings.TrimPrefix(path, root+"/"))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestDestinationFor(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"2023-05", "year=2023/month=05", true},
		{"2023-12", "year=2023/month=12", true},
		{"1999-1", "year=1999/month=01", true},
		{bucket.Unknown, UnknownDir, false},
		{"2023", UnknownDir, false},
		{"2023-05-15", UnknownDir, false},
		{"2023-xx", UnknownDir, false},
		{"Canon", UnknownDir, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := DestinationFor(tt.key)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestOffloadCopiesByMonth(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/photo1.jpg", photo("2023:05:15 10:00:00"))
	writeFile(t, fs, "/src/photo2.jpg", photo("2023:06:10 18:30:00"))
	log, _ := logtest.NewNullLogger()

	sum, err := newOffloader(fs, log).Offload("/src", "/dst", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"year=2023/month=05/photo1.jpg", "year=2023/month=06/photo2.jpg"}, tree(t, fs, "/dst"))
	exists, err := afero.DirExists(fs, "/dst/unknown")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, Summary{Total: 2, Written: 2}, sum)

	src, err := afero.ReadFile(fs, "/src/photo1.jpg")
	require.NoError(t, err)
	dst, err := afero.ReadFile(fs, "/dst/year=2023/month=05/photo1.jpg")
	require.NoError(t, err)
	assert.Equal(t, src, dst)
}

func TestOffloadUnknown(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		files []string
		sum   Summary
	}{
		{
			name:  "routed to unknown",
			files: []string{"unknown/photo.jpg"},
			sum:   Summary{Total: 1, Written: 1, Unknown: 1},
		},
		{
			name: "skipped",
			opts: Options{SkipUnknown: true},
			sum:  Summary{Total: 1, Unknown: 1, Skipped: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/src/photo.jpg", fixture.Photo{Make: "Canon"}.JPEG())
			log, hook := logtest.NewNullLogger()

			sum, err := newOffloader(fs, log).Offload("/src", "/dst", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.sum, sum)

			exists, err := afero.Exists(fs, "/dst")
			require.NoError(t, err)
			if tt.files == nil {
				assert.False(t, exists)
				var skipped bool
				for _, e := range hook.AllEntries() {
					if e.Message == "Skipping file" {
						skipped = true
						assert.Equal(t, "/src/photo.jpg", e.Data["path"])
						assert.Equal(t, "unknown date", e.Data["reason"])
					}
				}
				assert.True(t, skipped)
				return
			}
			assert.Equal(t, tt.files, tree(t, fs, "/dst"))
		})
	}
}

func TestOffloadPreservesModTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.jpg", photo("2022:02:02 02:02:02"), 0o600))
	mtime := time.Date(2022, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/src/a.jpg", mtime, mtime))
	log, _ := logtest.NewNullLogger()

	_, err := newOffloader(fs, log).Offload("/src", "/dst", Options{})
	require.NoError(t, err)

	fi, err := fs.Stat("/dst/year=2022/month=02/a.jpg")
	require.NoError(t, err)
	assert.True(t, mtime.Equal(fi.ModTime()))
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestOffloadArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.jpg", photo("2023:05:01 10:00:00"))
	writeFile(t, fs, "/src/b.jpeg", photo("2023:05:20 10:00:00"))
	writeFile(t, fs, "/src/c.jpg", fixture.NoEXIF)
	writeFile(t, fs, "/dst/year=2023/month=05/notes.txt", []byte("keep me"))
	log, _ := logtest.NewNullLogger()

	sum, err := newOffloader(fs, log).Offload("/src", "/dst", Options{Archive: true})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Written: 3, Unknown: 1}, sum)

	assert.Equal(t, []string{
		"unknown/photos.zip",
		"year=2023/month=05/notes.txt",
		"year=2023/month=05/photos.zip",
	}, tree(t, fs, "/dst"))

	f, err := fs.Open("/dst/year=2023/month=05/photos.zip")
	require.NoError(t, err)
	defer f.Close()
	fi, err := f.Stat()
	require.NoError(t, err)
	zr, err := zip.NewReader(f, fi.Size())
	require.NoError(t, err)

	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
		assert.Equal(t, zip.Deflate, zf.Method)

		rc, err := zf.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		want, err := afero.ReadFile(fs, "/src/"+zf.Name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, []string{"a.jpg", "b.jpeg"}, names)
}

func TestOffloadDryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.jpg", photo("2023:05:01 10:00:00"))
	writeFile(t, fs, "/src/b.jpg", fixture.NoEXIF)
	log, hook := logtest.NewNullLogger()

	sum, err := newOffloader(fs, log).Offload("/src", "/dst", Options{DryRun: true, Archive: true})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Unknown: 1}, sum)

	exists, err := afero.Exists(fs, "/dst")
	require.NoError(t, err)
	assert.False(t, exists)

	var planned []string
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "[DRY RUN]") {
			planned = append(planned, e.Data["path"].(string)+" "+e.Message)
		}
	}
	assert.Equal(t, []string{
		"/src/a.jpg [DRY RUN] Would offload to /dst/year=2023/month=05",
		"/src/b.jpg [DRY RUN] Would offload to /dst/unknown",
	}, planned)
}

func TestOffloadMissingSource(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	_, err := newOffloader(afero.NewMemMapFs(), log).Offload("/nowhere", "/dst", Options{})
	assert.ErrorIs(t, err, extract.ErrNotExist)
}

func TestOffloadEmptySource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/src", 0o755))
	log, _ := logtest.NewNullLogger()

	sum, err := newOffloader(fs, log).Offload("/src", "/dst", Options{})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	isDir, err := afero.IsDir(fs, "/dst")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestOffloadSourceInsideDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/lib/unknown/a.jpg", fixture.NoEXIF)
	log, _ := logtest.NewNullLogger()

	sum, err := newOffloader(fs, log).Offload("/lib/unknown", "/lib", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSameFile)
	assert.Contains(t, err.Error(), "failed to copy /lib/unknown/a.jpg to /lib/unknown")
	assert.Equal(t, 0, sum.Written)

	got, err := afero.ReadFile(fs, "/lib/unknown/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, fixture.NoEXIF, got)
}

func TestWriterCopyRefusesSameFileThroughSymlink(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lib", "unknown")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg bytes"), 0o644))
	alias := filepath.Join(root, "card")
	require.NoError(t, os.Symlink(dir, alias))
	log, _ := logtest.NewNullLogger()

	w := NewWriter(afero.NewOsFs(), metadata.Photo, log)
	err := w.Copy([]metadata.MediaMetadata{metadata.Unknown(filepath.Join(alias, "a.jpg"))}, dir)
	assert.ErrorIs(t, err, ErrSameFile)

	got, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(got))
}

type staticReader []metadata.MediaMetadata

func (r staticReader) Read(string) ([]metadata.MediaMetadata, error) { return r, nil }

func TestOffloadCopyFailureAborts(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/real.jpg", []byte("x"))
	log, _ := logtest.NewNullLogger()
	when := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	reader := staticReader{
		metadata.Unknown("/src/ghost.jpg").WithDate(when),
		metadata.Unknown("/src/real.jpg").WithDate(when),
	}
	o := New(reader, bucket.New(log), NewWriter(fs, metadata.Photo, log), log)

	sum, err := o.Offload("/src", "/dst", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to copy /src/ghost.jpg to /dst/year=2023/month=05")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, sum.Written)

	exists, err := afero.Exists(fs, "/dst/year=2023/month=05/real.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

// failingZipFs refuses to create archives.
type failingZipFs struct {
	afero.Fs
}

func (f failingZipFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.HasSuffix(name, ".zip") {
		return nil, errors.New("disk full")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestArchiveFailureKeepsCopies(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFile(t, mem, "/src/a.mov", []byte("moov"))
	log, _ := logtest.NewNullLogger()
	w := NewWriter(failingZipFs{mem}, metadata.Video, log)

	err := w.Archive([]metadata.MediaMetadata{metadata.Unknown("/src/a.mov")}, "/dst/unknown")
	require.Error(t, err)
	assert.Equal(t, "failed to create archive at /dst/unknown/videos.zip: disk full", err.Error())

	exists, err := afero.Exists(mem, "/dst/unknown/a.mov")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriterSaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.jpg", []byte("new"), 0o600))
	writeFile(t, fs, "/dst/a.jpg", []byte("older and longer"))
	log, _ := logtest.NewNullLogger()

	require.NoError(t, NewWriter(fs, metadata.Photo, log).Save([]metadata.MediaMetadata{metadata.Unknown("/src/a.jpg")}, "/dst", false))
	got, err := afero.ReadFile(fs, "/dst/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	fi, err := fs.Stat("/dst/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}
