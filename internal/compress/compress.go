// Package compress adds local files and directories to archives.
package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/arcs/archive"
	"github.com/nguyengg/arcs/internal"
	"github.com/nguyengg/arcs/lst"
	"golang.org/x/time/rate"
)

// progressBarThreshold is the size above which a file gets its own progress bar.
const progressBarThreshold = 16 * 1024 * 1024

// ErrOutsideBase is returned by Manifest for paths that are not under the manifest's base folder.
var ErrOutsideBase = errors.New("path is not under base folder")

// Options customises Add.
type Options struct {
	// ProgressBar enables progress bars for large files.
	ProgressBar bool
}

// Add recursively adds each of the named files or directories to the archive.
//
// The archive path of each file is relative to the parent of the named path it was found under, so adding "a/b" where
// b is a directory puts every file under "b/" in the archive. Returns the number of entries created.
func Add(ctx context.Context, a *archive.Archiver, paths []string, optFns ...func(*Options)) (n int, err error) {
	opts := &Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	logger := internal.Logger(ctx)
	sometimes := rate.Sometimes{Interval: 5 * time.Second}
	buf := make([]byte, internal.DefaultBufferSize)

	for _, name := range paths {
		parent := filepath.Dir(filepath.Clean(name))

		err = walk(ctx, name, func(srcPath string, fi fs.FileInfo) error {
			dstPath, err := filepath.Rel(parent, srcPath)
			if err != nil {
				return fmt.Errorf(`compute archive path of "%s" error: %w`, srcPath, err)
			}

			attrs := archive.AttributesFromFileInfo(srcPath, fi)
			if !attrs.IsDir && !attrs.IsSymlink && !fi.Mode().IsRegular() {
				logger.Printf(`skipping irregular file "%s"`, srcPath)
				return nil
			}

			if err = add(ctx, a, filepath.ToSlash(dstPath), attrs, opts, buf); err != nil {
				return err
			}

			n++
			sometimes.Do(func() {
				logger.Printf(`added %d entries so far, last was "%s" (%s)`, n, dstPath, humanize.Bytes(uint64(attrs.Size)))
			})
			return nil
		})
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

func add(ctx context.Context, a *archive.Archiver, dstPath string, attrs archive.Attributes, opts *Options, buf []byte) error {
	w, err := a.CreateEntry(dstPath, attrs)
	if err != nil {
		return fmt.Errorf(`create entry "%s" error: %w`, dstPath, err)
	}
	if w == nil || attrs.IsDir || attrs.IsSymlink {
		if w != nil {
			return w.Close()
		}
		return nil
	}

	src, err := os.Open(attrs.LocalPath)
	if err != nil {
		return fmt.Errorf(`open file "%s" error: %w`, attrs.LocalPath, err)
	}
	defer src.Close()

	var r io.Reader = src
	if opts.ProgressBar && attrs.Size >= progressBarThreshold {
		bar := internal.DefaultBytes(attrs.Size, "adding "+dstPath)
		defer bar.Close()
		r = io.TeeReader(src, bar)
	}

	if _, err = internal.CopyBufferWithContext(ctx, w, r, buf); err != nil {
		return fmt.Errorf(`add file "%s" error: %w`, attrs.LocalPath, err)
	}

	return w.Close()
}

// walk is filepath.WalkDir that checks for cancellation and passes the result of os.Lstat.
func walk(ctx context.Context, root string, fn func(path string, fi fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("walk dir error: %w", err)
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf(`stat file "%s" error: %w`, path, err)
		}

		return fn(path, fi)
	})
}

// Manifest writes an lst manifest listing the named files and directories recursively.
//
// The base folder is the absolute parent directory of the first path; every path must be under it. Symlinks are
// skipped since lst cannot represent them. Returns the number of entries written.
func Manifest(ctx context.Context, w io.Writer, paths []string) (n int, err error) {
	if len(paths) == 0 {
		return 0, errors.New("no paths to add to manifest")
	}

	base, err := filepath.Abs(filepath.Dir(filepath.Clean(paths[0])))
	if err != nil {
		return 0, fmt.Errorf(`resolve base folder error: %w`, err)
	}

	logger := internal.Logger(ctx)
	lw := lst.NewWriter(w, base)

	for _, name := range paths {
		abs, err := filepath.Abs(name)
		if err != nil {
			return n, fmt.Errorf(`resolve path "%s" error: %w`, name, err)
		}

		err = walk(ctx, abs, func(path string, fi fs.FileInfo) error {
			rel, err := filepath.Rel(base, path)
			if err != nil || !filepath.IsLocal(rel) {
				return fmt.Errorf(`%w: "%s"`, ErrOutsideBase, path)
			}

			e := &lst.Entry{Path: filepath.ToSlash(rel), IsDir: fi.IsDir(), ModTime: fi.ModTime()}
			switch {
			case fi.IsDir():
			case fi.Mode().IsRegular():
				e.Size = fi.Size()
			default:
				logger.Printf(`skipping "%s" since manifests can only list files and directories`, path)
				return nil
			}

			if err = lw.WriteEntry(e); err != nil {
				return fmt.Errorf(`write manifest entry "%s" error: %w`, rel, err)
			}

			n++
			return nil
		})
		if err != nil {
			return n, err
		}
	}

	if err = lw.Close(); err != nil {
		return n, fmt.Errorf("write manifest error: %w", err)
	}

	return n, nil
}
