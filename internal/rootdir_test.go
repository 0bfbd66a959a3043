package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootDirFinder(t *testing.T) {
	type entry struct {
		path  string
		isDir bool
	}

	tests := []struct {
		name     string
		args     []entry
		wantRoot RootDir
		hasRoot  bool
	}{
		{
			name: "simple root",
			args: []entry{
				{path: "test", isDir: true},
				{path: "test/a.txt"},
				{path: "test/path/b.txt"},
				{path: "test/another/path/c.txt"},
			},
			wantRoot: "test",
			hasRoot:  true,
		},
		{
			name: "no root",
			args: []entry{
				{path: "path/b.txt"},
				{path: "a.txt"},
				{path: "path/c.txt"},
			},
		},
		{
			name: "two roots",
			args: []entry{
				{path: "a/b.txt"},
				{path: "b/c.txt"},
			},
		},
		{
			name: "windows paths",
			args: []entry{
				{path: `test\a.txt`},
				{path: `test\path\b.txt`},
			},
			wantRoot: "test",
			hasRoot:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotRoot RootDir
				hasRoot bool
				fn      = NewRootDirFinder()
			)
			for _, e := range tt.args {
				gotRoot, hasRoot = fn(e.path, e.isDir)
			}

			assert.Equal(t, tt.wantRoot, gotRoot)
			assert.Equal(t, tt.hasRoot, hasRoot)
		})
	}
}

func TestRootDir_Trim(t *testing.T) {
	assert.Equal(t, "a/b.txt", RootDir("test").Trim("test/a/b.txt"))
	assert.Equal(t, "", RootDir("test").Trim("test"))
	assert.Equal(t, "a.txt", RootDir("").Trim("a.txt"))
}

func TestStemAndExt(t *testing.T) {
	tests := []struct {
		path, stem, ext string
	}{
		{path: "file.tar.gz", stem: "file", ext: ".tar.gz"},
		{path: "dir/archive.zip", stem: "archive", ext: ".zip"},
		{path: "noext", stem: "noext"},
		{path: "v1.2.3-release", stem: "v1.2.3-release"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			stem, ext := StemAndExt(tt.path)
			assert.Equal(t, tt.stem, stem)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestTruncateRightWithSuffix(t *testing.T) {
	assert.Equal(t, "hello", TruncateRightWithSuffix("hello", 5, "..."))
	assert.Equal(t, "hel...", TruncateRightWithSuffix("hello", 3, "..."))
	assert.Equal(t, "...", TruncateRightWithSuffix("hello", 0, "..."))
}
