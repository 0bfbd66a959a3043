package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nguyengg/arcs/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiver_OneEntryAtATime(t *testing.T) {
	var buf bytes.Buffer
	a, err := NewArchiver(&buf, KindTar)
	require.NoError(t, err)

	w1, err := a.CreateEntry("a.txt", Attributes{Size: 1})
	require.NoError(t, err)
	_, err = w1.Write([]byte("a"))
	require.NoError(t, err)

	w2, err := a.CreateEntry("b.txt", Attributes{Size: 1})
	require.NoError(t, err)

	// the first entry was finalized by the second CreateEntry.
	_, err = w1.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrEntryFinalized)

	_, err = w2.Write([]byte("b"))
	require.NoError(t, err)

	dir, err := a.CreateEntry("dir/", Attributes{})
	require.NoError(t, err)
	assert.Nil(t, dir)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())

	_, err = a.CreateEntry("c.txt", Attributes{Size: 1})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.SetComment("nope"), ErrClosed)

	_, err = w2.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrEntryFinalized)

	tr := tar.NewReader(&buf)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "dir/"}, names)
}

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestArchiver_SingleFile(t *testing.T) {
	dst := &closeRecorder{}
	a, err := Create(dst, "notes.txt.gz")
	require.NoError(t, err)
	assert.Equal(t, KindSingleFile, a.Kind())

	w, err := a.CreateEntry("notes.txt", Attributes{Size: 11})
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello world")
	require.NoError(t, err)

	_, err = a.CreateEntry("other.txt", Attributes{Size: 1})
	assert.ErrorIs(t, err, ErrUnsupportedEntry)

	require.NoError(t, a.Close())
	assert.Equal(t, 1, dst.closed)

	dec, err := codec.Gzip{}.NewDecoder(&dst.Buffer)
	require.NoError(t, err)
	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestArchiver_SingleFileDirectoryConsumesSlot(t *testing.T) {
	a, err := NewArchiver(io.Discard, KindSingleFile)
	require.NoError(t, err)

	w, err := a.CreateEntry("dir", Attributes{IsDir: true})
	require.NoError(t, err)
	assert.Nil(t, w)

	_, err = a.CreateEntry("file", Attributes{Size: 1})
	assert.ErrorIs(t, err, ErrUnsupportedEntry)
	assert.NoError(t, a.Close())
}

func TestArchiver_TarErrors(t *testing.T) {
	t.Run("unknown size", func(t *testing.T) {
		a, err := NewArchiver(io.Discard, KindTar)
		require.NoError(t, err)

		_, err = a.CreateEntry("a.txt", Attributes{Size: UnknownSize})
		assert.ErrorIs(t, err, ErrUnsupportedEntry)
	})

	t.Run("long name without GNU extensions", func(t *testing.T) {
		a, err := NewArchiver(io.Discard, KindTar, func(opts *Options) {
			opts.LongNames = LongNamesFail
		})
		require.NoError(t, err)

		_, err = a.CreateEntry(strings.Repeat("x", 150), Attributes{Size: 0})
		assert.ErrorIs(t, err, ErrUnsupportedEntry)

		_, err = a.CreateEntry("short.txt", Attributes{Size: 0})
		assert.NoError(t, err)
	})

	t.Run("short write", func(t *testing.T) {
		a, err := NewArchiver(io.Discard, KindTar)
		require.NoError(t, err)

		w, err := a.CreateEntry("a.txt", Attributes{Size: 10})
		require.NoError(t, err)
		_, err = io.WriteString(w, "12345")
		require.NoError(t, err)

		_, err = a.CreateEntry("b.txt", Attributes{Size: 0})
		assert.Error(t, err)
	})

	t.Run("unresolvable symlink", func(t *testing.T) {
		a, err := NewArchiver(io.Discard, KindTar)
		require.NoError(t, err)

		_, err = a.CreateEntry("link", Attributes{IsSymlink: true, LocalPath: filepath.Join(t.TempDir(), "missing")})
		assert.ErrorIs(t, err, ErrSymlinkResolution)

		var se *SymlinkError
		require.ErrorAs(t, err, &se)
		assert.True(t, errors.Is(se.Err, os.ErrNotExist))
	})

	t.Run("unresolvable symlink ignores stale target", func(t *testing.T) {
		a, err := NewArchiver(io.Discard, KindTar)
		require.NoError(t, err)

		_, err = a.CreateEntry("link", Attributes{IsSymlink: true, LinkTarget: "stale", LocalPath: filepath.Join(t.TempDir(), "missing")})
		assert.ErrorIs(t, err, ErrSymlinkResolution)
	})

	t.Run("directory symlink", func(t *testing.T) {
		a, err := NewArchiver(io.Discard, KindTar)
		require.NoError(t, err)

		_, err = a.CreateEntry("dir/", Attributes{IsSymlink: true, LinkTarget: "elsewhere"})
		assert.ErrorIs(t, err, ErrUnsupportedEntry)
	})
}

func TestArchiver_SymlinkPrefersLiveTarget(t *testing.T) {
	var buf bytes.Buffer
	a, err := NewArchiver(&buf, KindTar, func(opts *Options) {
		opts.Readlink = func(name string) (string, error) {
			assert.Equal(t, "/src/link", name)
			return "live.txt", nil
		}
	})
	require.NoError(t, err)

	_, err = a.CreateEntry("link", Attributes{IsSymlink: true, LinkTarget: "stale.txt", LocalPath: "/src/link", ModTime: modTime})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	var targets []string
	for rec, err := range NewReader(BytesSource(buf.Bytes()), TarFormat{}).All() {
		require.NoError(t, err)
		targets = append(targets, rec.LinkTarget)
	}
	assert.Equal(t, []string{"live.txt"}, targets)
}

func TestArchiver_SymlinkFromDisk(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target.txt"), []byte("target"), 0o644))
	require.NoError(t, os.Symlink("target.txt", filepath.Join(dir, "link")))

	for _, kind := range []Kind{KindTar, KindZip} {
		t.Run(kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			a, err := NewArchiver(&buf, kind)
			require.NoError(t, err)

			for _, name := range []string{"target.txt", "link"} {
				fi, err := os.Lstat(filepath.Join(dir, name))
				require.NoError(t, err)

				w, err := a.CreateEntry(name, AttributesFromFileInfo(filepath.Join(dir, name), fi))
				require.NoError(t, err)

				f, err := os.Open(filepath.Join(dir, name))
				require.NoError(t, err)
				_, err = io.Copy(w, f)
				_ = f.Close()
				require.NoError(t, err)
			}
			require.NoError(t, a.Close())

			var format Archive = NewReader(BytesSource(buf.Bytes()), TarFormat{})
			if kind == KindZip {
				format = NewReader(BytesSource(buf.Bytes()), ZipFormat{})
			}

			var links []string
			err = format.Walk(func(e *Entry, open func() (io.ReadCloser, error)) error {
				if e.IsSymlink {
					links = append(links, e.Path+" -> "+e.LinkTarget)
				} else {
					assert.Equal(t, int64(6), e.Size)
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"link -> target.txt"}, links)
		})
	}
}

func TestArchiver_ZipComment(t *testing.T) {
	var buf bytes.Buffer
	a, err := NewArchiver(&buf, KindZip)
	require.NoError(t, err)

	_, err = a.CreateEntry("a.txt", Attributes{Size: 1})
	require.NoError(t, err)
	require.NoError(t, a.SetComment("made by arcs"))
	require.NoError(t, a.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, "made by arcs", zr.Comment)

	// archive/zip also sees the Unix mode through the external attributes.
	require.Len(t, zr.File, 1)
	assert.Equal(t, os.FileMode(0o644), zr.File[0].Mode())
}

func TestArchiver_ZipRejectsCodec(t *testing.T) {
	_, err := NewArchiver(io.Discard, KindZip, func(opts *Options) {
		opts.Codec = codec.Gzip{}
	})
	assert.Error(t, err)
}
