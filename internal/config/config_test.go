package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadFrom(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, Name), []byte(`[create]
long-names = FAIL
zip-level = 3
comment = hello world

[extract]
lst-base = /mnt/data
`), 0o644))

	child := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0o755))

	l := &Loader{}
	name, err := l.LoadFrom(context.Background(), child)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, Name), name)

	assert.Equal(t, CreateConfig{LongNames: "fail", ZipLevel: 3, Comment: "hello world"}, l.ForCreate())
	assert.Equal(t, ExtractConfig{LstBase: "/mnt/data"}, l.ForExtract())
}

func TestLoader_Missing(t *testing.T) {
	l := &Loader{}
	name, err := l.LoadFrom(context.Background(), t.TempDir())
	require.NoError(t, err)

	// nothing guarantees that no ancestor of the temp dir has a .arcs file, but if there is none, defaults apply.
	if name == "" {
		assert.Equal(t, CreateConfig{}, l.ForCreate())
		assert.Equal(t, ExtractConfig{}, l.ForExtract())
	}
}

func TestLoader_Zero(t *testing.T) {
	l := &Loader{}
	assert.Equal(t, CreateConfig{}, l.ForCreate())
}
