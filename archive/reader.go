package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
)

// Archive is the format-erased view of a Reader, for callers that select formats at runtime.
type Archive interface {
	// Format returns the name of the archive's format.
	Format() string

	// Walk calls fn for every entry in archive order.
	//
	// The open function passed to fn returns the entry's content. While fn runs it reads straight from the pass'
	// decoder, and closing it is a no-op; called after fn returns, it rescans the archive. Returning fs.SkipAll from fn
	// stops the walk without error.
	Walk(fn WalkFunc) error

	// Open returns the content of the first entry with the given path by scanning the archive from the start.
	Open(name string) (io.ReadCloser, error)
}

// WalkFunc is the callback of Archive.Walk.
type WalkFunc func(e *Entry, open func() (io.ReadCloser, error)) error

// Reader gives access to the entries of an archive of the format with handle H.
//
// Reader does not keep any stream open between calls; every pass opens the Source anew. A Reader is not safe for
// concurrent use.
type Reader[H any] struct {
	src    Source
	format Format[H]
}

var _ Archive = &Reader[any]{}

// NewReader returns a Reader over the archive from src.
func NewReader[H any](src Source, format Format[H]) *Reader[H] {
	return &Reader[H]{src: src, format: format}
}

// Format returns the name of the archive's format.
func (r *Reader[H]) Format() string {
	return r.format.Name()
}

// Entries opens a new pass over the archive.
//
// The returned iterator owns the opened stream; the caller must close it.
func (r *Reader[H]) Entries() (Iterator[H], error) {
	rc, err := r.src.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s archive error: %w", r.format.Name(), err)
	}

	it, err := r.format.NewIterator(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}

	return &ownedIterator[H]{Iterator: it, close: chainCloser(it.Close, rc.Close)}, nil
}

// All returns an iterator over every record of a new pass.
//
// Iteration stops after the first error. Use Entries instead to access the records' content on the fast path.
func (r *Reader[H]) All() iter.Seq2[*Record[H], error] {
	return func(yield func(*Record[H], error) bool) {
		it, err := r.Entries()
		if err != nil {
			yield(nil, err)
			return
		}
		defer it.Close()

		for {
			rec, err := it.Next()
			if errors.Is(err, io.EOF) {
				return
			}

			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// ContentStream returns a reader over the content of rec.
//
// If it is the iterator that produced rec and is still positioned at it, the content is read directly from the
// iterator's decoder and closing the returned stream is a no-op: the decoder stays alive for subsequent calls to
// Next. The stream must not be used after the iterator advances.
//
// Otherwise, the archive is reopened and scanned from the start until the first entry with rec's path, and the
// returned stream owns that independent pass; the caller must close it. This is O(n) in the size of the archive, so
// it suits occasional lookups rather than bulk extraction.
//
// Directories have no content: ErrUnsupportedEntry is returned.
func (r *Reader[H]) ContentStream(rec *Record[H], it Iterator[H]) (io.ReadCloser, error) {
	if rec.IsDir {
		return nil, unsupported(`"%s" is a directory`, rec.Path)
	}

	if o, ok := r.format.(ContentOpener[H]); ok {
		return o.OpenContent(rec)
	}

	if it != nil && it.Current() == rec {
		c, err := it.Content()
		if err != nil {
			return nil, err
		}

		return io.NopCloser(c), nil
	}

	return r.scan(rec.Path)
}

// Open implements Archive.Open.
func (r *Reader[H]) Open(name string) (io.ReadCloser, error) {
	name, _ = cleanPath(name)
	return r.scan(name)
}

// Walk implements Archive.Walk.
func (r *Reader[H]) Walk(fn WalkFunc) error {
	it, err := r.Entries()
	if err != nil {
		return err
	}

	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return it.Close()
		}
		if err != nil {
			_ = it.Close()
			return err
		}

		err = fn(&rec.Entry, func() (io.ReadCloser, error) {
			return r.ContentStream(rec, it)
		})
		if errors.Is(err, fs.SkipAll) {
			return it.Close()
		}
		if err != nil {
			_ = it.Close()
			return err
		}
	}
}

// scan is the fallback path: a linear pass from byte zero to the first entry named name.
//
// TODO every miss reopens the archive from the start, so repeated lookups into a large or remote archive cost
// O(entries × archive size); callers doing bulk access should walk the archive once instead.
func (r *Reader[H]) scan(name string) (io.ReadCloser, error) {
	it, err := r.Entries()
	if err != nil {
		return nil, err
	}

	for {
		rec, err := it.Next()
		switch {
		case errors.Is(err, io.EOF):
			_ = it.Close()
			return nil, fmt.Errorf(`%w: "%s" in %s archive`, ErrEntryNotFound, name, r.format.Name())
		case err != nil:
			_ = it.Close()
			return nil, err
		case rec.Path != name:
			continue
		case rec.IsDir:
			_ = it.Close()
			return nil, unsupported(`"%s" is a directory`, rec.Path)
		}

		if o, ok := r.format.(ContentOpener[H]); ok {
			_ = it.Close()
			return o.OpenContent(rec)
		}

		c, err := it.Content()
		if err != nil {
			_ = it.Close()
			return nil, err
		}

		return &readCloser{Reader: c, close: it.Close}, nil
	}
}

// ownedIterator closes the stream opened by Reader.Entries along with the format's iterator.
type ownedIterator[H any] struct {
	Iterator[H]
	close func() error
}

func (it *ownedIterator[H]) Close() error {
	if it.close == nil {
		return nil
	}

	fn := it.close
	it.close = nil
	return fn()
}
