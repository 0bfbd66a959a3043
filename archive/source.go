package archive

import (
	"bytes"
	"io"
	"os"
)

// Source produces independent readers over an archive, each starting at byte zero.
//
// Reader opens a Source once per pass over the archive: once for every iteration and once more for every content
// lookup that cannot use the fast path.
type Source interface {
	Open() (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (io.ReadCloser, error)

func (fn SourceFunc) Open() (io.ReadCloser, error) {
	return fn()
}

// FileSource returns a Source that opens the named local file.
//
// The returned *os.File implements io.ReaderAt, which lets zip archives be read from their central directory.
func FileSource(name string) Source {
	return SourceFunc(func() (io.ReadCloser, error) {
		return os.Open(name)
	})
}

// BytesSource returns a Source over an in-memory archive.
func BytesSource(data []byte) Source {
	return SourceFunc(func() (io.ReadCloser, error) {
		return &bytesReadCloser{bytes.NewReader(data)}, nil
	})
}

// bytesReadCloser keeps io.ReaderAt and Size visible, unlike io.NopCloser.
type bytesReadCloser struct {
	*bytes.Reader
}

func (r *bytesReadCloser) Close() error {
	return nil
}
