package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arcs/archive"
	"github.com/nguyengg/arcs/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newArchive writes a.txt and sub/b.txt under a "root" directory to the named archive.
func newArchive(t *testing.T, name string) {
	t.Helper()

	f, err := os.Create(name)
	require.NoError(t, err)

	a, err := archive.Create(f, name)
	require.NoError(t, err)

	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for path, content := range map[string]string{"root/a.txt": "hello", "root/sub/b.txt": "world"} {
		w, err := a.CreateEntry(path, archive.Attributes{Size: int64(len(content)), ModTime: modTime, Perm: archive.FullPermissions(0o644)})
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	require.NoError(t, a.Close())
}

func TestList(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.tar.gz")
	newArchive(t, name)

	var out bytes.Buffer
	c := &List{Digest: true, out: &out}
	require.NoError(t, c.list(context.Background(), name))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	// sha256 of "hello".
	assert.Contains(t, out.String(), "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824 root/a.txt")
	assert.Contains(t, out.String(), "root/sub/b.txt")
}

func TestList_IdentifiesByContent(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "test.zip")
	newArchive(t, name)

	renamed := filepath.Join(dir, "test.bin")
	require.NoError(t, os.Rename(name, renamed))

	var out bytes.Buffer
	require.NoError(t, (&List{out: &out}).list(context.Background(), renamed))
	assert.Equal(t, "root/a.txt\nroot/sub/b.txt\n", sortedLines(out.String()))
}

func TestCat(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.zip")
	newArchive(t, name)

	var out bytes.Buffer
	c := &Cat{out: &out}
	c.Args.File = flags.Filename(name)
	c.Args.Entry = "root/sub/b.txt"
	require.NoError(t, c.Execute(nil))
	assert.Equal(t, "world", out.String())

	c.Args.Entry = "root/missing.txt"
	assert.ErrorIs(t, c.Execute(nil), archive.ErrEntryNotFound)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "test.tar")
	newArchive(t, name)

	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	c := &Extract{Directory: flags.Filename(out), NoProgress: true}
	require.NoError(t, c.extract(context.Background(), name))

	data, err := os.ReadFile(filepath.Join(out, "root", "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644))

	name := filepath.Join(dir, "out.zip")
	c := &Create{Output: flags.Filename(name), Comment: "hi", NoProgress: true}
	c.Args.Files = []flags.Filename{flags.Filename(src)}
	require.NoError(t, c.Execute(nil))

	a, err := archive.OpenFile(name)
	require.NoError(t, err)
	rc, err := a.Open("src/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// the output must not be overwritten.
	assert.Error(t, c.Execute(nil))
}

func TestCreate_Options(t *testing.T) {
	c := &Create{Output: "out.tar", LongNames: "fail"}
	opts := &archive.Options{}
	c.options(config.CreateConfig{LongNames: "gnu", ZipLevel: 3, Comment: "ignored"})(opts)

	assert.Equal(t, archive.LongNamesFail, opts.LongNames)
	assert.Equal(t, 3, opts.ZipLevel)
	assert.Empty(t, c.Comment)
}

func sortedLines(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 2 && lines[0] > lines[1] {
		lines[0], lines[1] = lines[1], lines[0]
	}

	return strings.Join(lines, "\n") + "\n"
}
