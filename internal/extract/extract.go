// Package extract materializes archive entries on the local filesystem.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/arcs/archive"
	"github.com/nguyengg/arcs/internal"
	"golang.org/x/time/rate"
)

// ErrUnsafePath is returned for entries whose path or link target would escape the output directory.
var ErrUnsafePath = errors.New("path escapes output directory")

// progressBarThreshold is the size above which an entry gets its own progress bar.
const progressBarThreshold = 16 * 1024 * 1024

// Extractor writes the entries of an archive to a directory.
type Extractor struct {
	// Dir is the output directory, which must exist.
	Dir string

	// Root if given is removed from the path of every entry.
	Root internal.RootDir

	// ProgressBar enables progress bars for large entries.
	ProgressBar bool
}

// dirTimes remembers directories' metadata since creating their children changes their mtime.
type dirTimes struct {
	path    string
	perm    fs.FileMode
	modTime time.Time
}

// Extract writes every entry of a to Extractor.Dir, returning the number of files, directories, and symlinks created.
func (x *Extractor) Extract(ctx context.Context, a archive.Archive) (n int, err error) {
	logger := internal.Logger(ctx)
	sometimes := rate.Sometimes{Interval: 5 * time.Second}
	buf := make([]byte, internal.DefaultBufferSize)

	var dirs []dirTimes

	err = a.Walk(func(e *archive.Entry, open func() (io.ReadCloser, error)) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := x.Root.Trim(e.Path)
		if name == "" {
			return nil
		}

		path, err := x.securePath(name)
		if err != nil {
			return err
		}

		switch {
		case e.IsDir:
			if err = os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf(`create directory "%s" error: %w`, path, err)
			}
			dirs = append(dirs, dirTimes{path: path, perm: e.Perm.FileMode(), modTime: e.ModTime})

		case e.IsSymlink:
			if err = x.symlink(path, e.LinkTarget); err != nil {
				return err
			}

		default:
			if err = x.writeFile(ctx, path, e, open, buf); err != nil {
				return err
			}
		}

		n++
		sometimes.Do(func() {
			logger.Printf(`extracted %d entries so far, last was "%s" (%s)`, n, e.Path, humanize.Bytes(uint64(max(e.Size, 0))))
		})
		return nil
	})
	if err != nil {
		return n, err
	}

	// deepest directories first so that fixing a parent's mode never blocks fixing its children.
	slices.Reverse(dirs)
	for _, d := range dirs {
		if err = os.Chmod(d.path, d.perm); err != nil {
			return n, fmt.Errorf(`change mode of "%s" error: %w`, d.path, err)
		}
		if err = os.Chtimes(d.path, time.Time{}, d.modTime); err != nil {
			return n, fmt.Errorf(`change mod time of "%s" error: %w`, d.path, err)
		}
	}

	return n, nil
}

// securePath returns the local path of the archive path name, refusing anything outside Dir.
func (x *Extractor) securePath(name string) (string, error) {
	local := filepath.FromSlash(name)
	if filepath.IsAbs(local) || !filepath.IsLocal(local) {
		return "", fmt.Errorf(`%w: "%s"`, ErrUnsafePath, name)
	}

	return filepath.Join(x.Dir, local), nil
}

// symlink creates a symlink whose target must resolve to somewhere inside Dir.
func (x *Extractor) symlink(path, target string) error {
	if filepath.IsAbs(target) {
		return fmt.Errorf(`%w: symlink "%s" points to absolute path "%s"`, ErrUnsafePath, path, target)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf(`create path to symlink "%s" error: %w`, path, err)
	}

	parent, err := x.resolve(filepath.Dir(path))
	if err != nil {
		return err
	}
	if _, err = x.resolve(filepath.Join(parent, filepath.FromSlash(target))); err != nil {
		return fmt.Errorf(`%w: symlink "%s" points to "%s"`, ErrUnsafePath, path, target)
	}

	if err = os.Symlink(target, path); err != nil {
		return fmt.Errorf(`create symlink "%s" error: %w`, path, err)
	}

	return nil
}

// resolve follows the symlinks in the existing prefix of path and fails if the result is outside Dir.
func (x *Extractor) resolve(path string) (string, error) {
	root, err := filepath.EvalSymlinks(x.Dir)
	if err != nil {
		return "", fmt.Errorf(`resolve output directory "%s" error: %w`, x.Dir, err)
	}

	resolved, rest := filepath.Clean(path), ""
	for {
		if p, err := filepath.EvalSymlinks(resolved); err == nil {
			resolved = filepath.Join(p, rest)
			break
		}

		parent := filepath.Dir(resolved)
		if parent == resolved {
			break
		}
		rest = filepath.Join(filepath.Base(resolved), rest)
		resolved = parent
	}

	if rel, err := filepath.Rel(root, resolved); err != nil || rel != "." && !filepath.IsLocal(rel) {
		return "", fmt.Errorf(`%w: "%s"`, ErrUnsafePath, path)
	}

	return resolved, nil
}

func (x *Extractor) writeFile(ctx context.Context, path string, e *archive.Entry, open func() (io.ReadCloser, error), buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf(`create path to file "%s" error: %w`, path, err)
	}

	// an earlier symlink entry may have redirected the parent.
	if _, err := x.resolve(filepath.Dir(path)); err != nil {
		return err
	}

	rc, err := open()
	if err != nil {
		return fmt.Errorf(`open entry "%s" error: %w`, e.Path, err)
	}
	defer rc.Close()

	w, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, e.Perm.FileMode())
	if err != nil {
		return fmt.Errorf(`create file "%s" error: %w`, path, err)
	}

	var dst io.Writer = w
	if x.ProgressBar && e.Size >= progressBarThreshold {
		bar := internal.DefaultBytes(e.Size, e.Path)
		defer bar.Close()
		dst = io.MultiWriter(w, bar)
	}

	if _, err = internal.CopyBufferWithContext(ctx, dst, rc, buf); err != nil {
		_ = w.Close()
		return fmt.Errorf(`write to file "%s" error: %w`, path, err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf(`close file "%s" error: %w`, path, err)
	}

	// OpenFile is subject to umask.
	if err = os.Chmod(path, e.Perm.FileMode()); err != nil {
		return fmt.Errorf(`change mode of "%s" error: %w`, path, err)
	}

	if err = os.Chtimes(path, time.Time{}, e.ModTime); err != nil {
		return fmt.Errorf(`change mod time of "%s" error: %w`, path, err)
	}

	return nil
}

// FindRoot returns the directory that every entry of a lives under, if there is one.
//
// The walk stops as soon as two entries disagree, and no content is read.
func FindRoot(ctx context.Context, a archive.Archive) (root internal.RootDir, err error) {
	finder := internal.NewRootDirFinder()

	err = a.Walk(func(e *archive.Entry, _ func() (io.ReadCloser, error)) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var ok bool
		if root, ok = finder(e.Path, e.IsDir); !ok {
			return fs.SkipAll
		}

		return nil
	})

	if err != nil {
		return "", err
	}

	return root, nil
}
