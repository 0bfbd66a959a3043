package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file.
const Name = ".arcs"

// Loader can be used for loading .arcs configuration.
type Loader struct {
	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards to find the first ".arcs" file available and load its contents
// into the Loader.
//
// The name of the .arcs file is returned, or an empty string if none was found in which case the Loader keeps an
// empty configuration.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, cur)
}

// LoadFrom is a variant of Load that starts searching from the given directory instead of the working directory.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	var (
		path   = filepath.Join(dir, Name)
		cur    = dir
		parent string
	)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		fi, err := os.Stat(path)
		if err == nil && !fi.IsDir() {
			break
		}

		if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent = filepath.Dir(cur)
		if parent == cur || parent == "." {
			l.cfg = ini.Empty()
			return "", nil
		}

		path = filepath.Join(parent, Name)
		cur = parent
	}

	cfg, err := ini.Load(path)
	if err != nil {
		l.cfg = ini.Empty()
		return path, err
	}

	l.cfg = cfg
	return path, nil
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}
