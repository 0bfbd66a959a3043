package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadPermissions(t *testing.T) {
	tests := []struct {
		name string
		p    PermissionBits
		def  Permissions
		want Permissions
	}{
		{name: "nothing known", p: PermissionBits{}, def: DefaultFilePermissions, want: 0o644},
		{name: "everything known", p: FullPermissions(0o600), def: DefaultFilePermissions, want: 0o600},
		{name: "only user known", p: PermissionBits{Bits: 0o700, Mask: 0o700}, def: DefaultDirectoryPermissions, want: 0o755},
		{name: "bits outside mask ignored", p: PermissionBits{Bits: 0o777, Mask: 0o700}, def: 0o600, want: 0o700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadPermissions(tt.p, tt.def)
			assert.Equal(t, tt.want, got.Bits)
			assert.Equal(t, Permissions(0o777), got.Mask)
		})
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name     string
		want     string
		trailing bool
	}{
		{name: "a/b", want: "a/b"},
		{name: "./a/b/", want: "a/b", trailing: true},
		{name: "/abs/path", want: "abs/path"},
		{name: ".//./a", want: "a"},
		{name: "dir//", want: "dir", trailing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, trailing := cleanPath(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.trailing, trailing)
		})
	}
}

func TestEntry_Mode(t *testing.T) {
	e := Entry{Path: "a/b", IsDir: true, Perm: FullPermissions(0o750)}
	assert.Equal(t, fs.ModeDir|0o750, e.Mode())
	assert.Equal(t, "b", e.Name())

	e = Entry{Path: "link", IsSymlink: true, Perm: FullPermissions(0o777)}
	assert.Equal(t, fs.ModeSymlink|0o777, e.Mode())
}

func TestAttributesFromFileInfo(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(name, []byte("abc"), 0o600))
	require.NoError(t, os.Chmod(name, 0o600))

	fi, err := os.Lstat(name)
	require.NoError(t, err)

	a := AttributesFromFileInfo(name, fi)
	assert.Equal(t, int64(3), a.Size)
	assert.False(t, a.IsDir)
	assert.False(t, a.IsSymlink)
	assert.Equal(t, name, a.LocalPath)
	assert.Equal(t, fi.ModTime(), a.ModTime)

	fi, err = os.Lstat(dir)
	require.NoError(t, err)
	a = AttributesFromFileInfo(dir, fi)
	assert.True(t, a.IsDir)
	assert.Equal(t, int64(0), a.Size)
}
