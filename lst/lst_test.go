package lst

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) ([]Entry, error) {
	t.Helper()

	var entries []Entry
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}

		entries = append(entries, *e)
	}
}

func TestReader(t *testing.T) {
	manifest := "C:\\data\\export\r\n" +
		"readme.txt\t12\t2021.03.04\t05.06.07\r\n" +
		"\r\n" +
		"docs\\\t0\t2021.03.04\t05.06.07\r\n" +
		"a.txt\t1\t2021.03.04\t13.14.15\r\n" +
		"docs\\sub\\\t0\t2021.03.04\t05.06.07\r\n" +
		"b.txt\t2\t2021.03.04\t05.06.07\r\n" +
		"\\\t0\t2021.03.04\t05.06.07\r\n" +
		"c.txt\t3\t2021.03.04\t05.06.07\r\n"

	r := NewReader(strings.NewReader(manifest))

	base, err := r.BaseFolder()
	require.NoError(t, err)
	assert.Equal(t, "C:/data/export/", base)

	entries, err := readAll(t, r)
	require.NoError(t, err)

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"readme.txt", "docs", "docs/a.txt", "docs/sub", "docs/sub/b.txt", "c.txt"}, paths)

	assert.False(t, entries[0].IsDir)
	assert.Equal(t, int64(12), entries[0].Size)
	assert.True(t, entries[1].IsDir)
	assert.Equal(t, time.Date(2021, 3, 4, 13, 14, 15, 0, time.Local), entries[2].ModTime)
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		line     int
	}{
		{name: "empty", manifest: "", line: 1},
		{name: "blank base", manifest: "  \n", line: 1},
		{name: "missing fields", manifest: "/base\na.txt\t1\n", line: 2},
		{name: "bad size", manifest: "/base\na.txt\tone\t2021.03.04\t05.06.07\n", line: 2},
		{name: "bad date", manifest: "/base\n\na.txt\t1\t04/03/2021\t05.06.07\n", line: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readAll(t, NewReader(strings.NewReader(tt.manifest)))
			assert.ErrorIs(t, err, ErrSyntax)

			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	modTime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	var buf bytes.Buffer
	w := NewWriter(&buf, "/srv/files")
	for _, e := range []Entry{
		{Path: "top.txt", Size: 4, ModTime: modTime},
		{Path: "dir", IsDir: true, ModTime: modTime},
		{Path: "dir/a.txt", Size: 1, ModTime: modTime},
		{Path: "other/b.txt", Size: 2, ModTime: modTime},
		{Path: "last.txt", Size: 3, ModTime: modTime},
	} {
		require.NoError(t, w.WriteEntry(&e))
	}
	require.NoError(t, w.Close())

	r := NewReader(&buf)
	base, err := r.BaseFolder()
	require.NoError(t, err)
	assert.Equal(t, "/srv/files/", base)

	entries, err := readAll(t, r)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "top.txt", Size: 4, ModTime: modTime},
		{Path: "dir", IsDir: true, ModTime: modTime},
		{Path: "dir/a.txt", Size: 1, ModTime: modTime},
		{Path: "other", IsDir: true, ModTime: modTime},
		{Path: "other/b.txt", Size: 2, ModTime: modTime},
		{Path: "last.txt", Size: 3, ModTime: modTime},
	}, entries)
}
