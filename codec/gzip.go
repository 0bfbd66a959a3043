package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip implements Codec for gzip compression algorithm.
type Gzip struct {
	// Level is the compression level; the zero value means gzip.DefaultCompression.
	Level int
}

var _ Codec = Gzip{}

func (c Gzip) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}

func (c Gzip) NewEncoder(dst io.Writer) (io.WriteCloser, error) {
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	return gzip.NewWriterLevel(dst, level)
}

func (c Gzip) Ext() string {
	return ".gz"
}

func (c Gzip) ContentType() string {
	return "application/gzip"
}
