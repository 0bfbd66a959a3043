package codec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// Bzip2 implements Codec for bzip2 compression algorithm.
//
// The standard library only decompresses bzip2, so both directions use github.com/dsnet/compress.
type Bzip2 struct{}

var _ Codec = Bzip2{}

func (c Bzip2) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(src, nil)
}

func (c Bzip2) NewEncoder(dst io.Writer) (io.WriteCloser, error) {
	return bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: bzip2.BestCompression})
}

func (c Bzip2) Ext() string {
	return ".bz2"
}

func (c Bzip2) ContentType() string {
	return "application/x-bzip2"
}
