package extract

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nguyengg/arcs/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modTime = time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

type file struct {
	path    string
	attrs   archive.Attributes
	content string
}

func newTar(t *testing.T, files ...file) archive.Archive {
	t.Helper()

	var buf bytes.Buffer
	a, err := archive.NewArchiver(&buf, archive.KindTar)
	require.NoError(t, err)

	for _, f := range files {
		w, err := a.CreateEntry(f.path, f.attrs)
		require.NoError(t, err)
		if w == nil {
			continue
		}

		_, err = io.WriteString(w, f.content)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	require.NoError(t, a.Close())

	return archive.NewReader(archive.BytesSource(buf.Bytes()), archive.TarFormat{})
}

func dir(path string) file {
	return file{path: path, attrs: archive.Attributes{IsDir: true, ModTime: modTime, Perm: archive.FullPermissions(0o750)}}
}

func regular(path, content string) file {
	return file{path: path, content: content, attrs: archive.Attributes{
		Size:    int64(len(content)),
		ModTime: modTime,
		Perm:    archive.FullPermissions(0o640),
	}}
}

func symlink(path, target string) file {
	return file{path: path, attrs: archive.Attributes{IsSymlink: true, LinkTarget: target, ModTime: modTime}}
}

func TestExtractor_Extract(t *testing.T) {
	a := newTar(t,
		dir("root"),
		dir("root/sub"),
		regular("root/sub/a.txt", "hello"),
		regular("root/b.txt", "world"))

	out := t.TempDir()
	n, err := (&Extractor{Dir: out}).Extract(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := os.ReadFile(filepath.Join(out, "root", "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	fi, err := os.Stat(filepath.Join(out, "root", "b.txt"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(modTime))

	fi, err = os.Stat(filepath.Join(out, "root", "sub"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(modTime))
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o750), fi.Mode().Perm())
	}
}

func TestExtractor_Root(t *testing.T) {
	a := newTar(t,
		dir("root"),
		regular("root/a.txt", "a"),
		regular("root/sub/b.txt", "b"))

	root, err := FindRoot(context.Background(), a)
	require.NoError(t, err)
	assert.EqualValues(t, "root", root)

	out := t.TempDir()
	n, err := (&Extractor{Dir: out, Root: root}).Extract(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(out, "a.txt"))
	assert.FileExists(t, filepath.Join(out, "sub", "b.txt"))
}

func TestFindRoot_None(t *testing.T) {
	root, err := FindRoot(context.Background(), newTar(t,
		regular("a/a.txt", "a"),
		regular("b.txt", "b")))
	require.NoError(t, err)
	assert.Empty(t, root)

	root, err = FindRoot(context.Background(), newTar(t,
		regular("a/a.txt", "a"),
		regular("b/b.txt", "b")))
	require.NoError(t, err)
	assert.Empty(t, root)
}

func TestExtractor_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	a := newTar(t,
		regular("a.txt", "a"),
		symlink("link", "a.txt"))

	out := t.TempDir()
	_, err := (&Extractor{Dir: out}).Extract(context.Background(), a)
	require.NoError(t, err)

	target, err := os.Readlink(filepath.Join(out, "link"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", target)
}

func TestExtractor_Unsafe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	tests := []struct {
		name  string
		files []file
	}{
		{name: "absolute symlink", files: []file{symlink("link", "/etc/passwd")}},
		{name: "escaping symlink", files: []file{symlink("link", "../../outside")}},
		{name: "chained symlinks", files: []file{
			dir("sub"),
			symlink("sub/up", ".."),
			symlink("sub/up/esc", ".."),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out")
			require.NoError(t, os.Mkdir(out, 0o755))

			_, err := (&Extractor{Dir: out}).Extract(context.Background(), newTar(t, tt.files...))
			assert.ErrorIs(t, err, ErrUnsafePath)
		})
	}
}

func TestExtractor_NoOverwrite(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.txt"), []byte("original"), 0o644))

	_, err := (&Extractor{Dir: out}).Extract(context.Background(), newTar(t, regular("a.txt", "new")))
	assert.ErrorIs(t, err, os.ErrExist)

	data, err := os.ReadFile(filepath.Join(out, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestExtractor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Extractor{Dir: t.TempDir()}).Extract(ctx, newTar(t, regular("a.txt", "a")))
	assert.ErrorIs(t, err, context.Canceled)
}
