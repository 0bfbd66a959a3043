package archive

import (
	"io"
)

// writeNoopCloser implements a no-op io.Closer for an io.Writer.
//
// Entries are finalized by the next Archiver.CreateEntry or Archiver.Close, never by closing their writer.
type writeNoopCloser struct {
	io.Writer
}

func (w *writeNoopCloser) Close() error {
	return nil
}

// readCloser pairs an io.Reader with the function releasing whatever it reads from.
type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	if r.close == nil {
		return nil
	}

	fn := r.close
	r.close = nil
	return fn()
}

// chainCloser makes sure all the close functions are called at least once and returns the first error.
//
// The order assumes the first close function is the most important.
func chainCloser(fns ...func() error) func() error {
	return func() (err error) {
		for _, fn := range fns {
			if fn == nil {
				continue
			}

			if err2 := fn(); err2 != nil && err == nil {
				err = err2
			}
		}

		return
	}
}

// nopWriteCloser is the encoder used when no codec is configured: closing it must not close the destination since the
// Archiver closes that itself.
func nopWriteCloser(w io.Writer) io.WriteCloser {
	return &writeNoopCloser{Writer: w}
}
