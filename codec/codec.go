// Package codec provides the stream compressors that wrap archive byte streams, such as the gzip layer of a .tar.gz
// file or the whole of a single-file .zst.
package codec

import (
	"io"
	"strings"
)

// Codec has methods to create compressor/encoder and decompressor/decoder.
type Codec interface {
	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
	// NewEncoder creates an encoder to compress contents to the given io.Writer.
	//
	// Closing the encoder flushes it but does not close dst.
	NewEncoder(dst io.Writer) (io.WriteCloser, error)
	// Ext returns the file name extension of files compressed with this codec, such as ".gz".
	Ext() string
	// ContentType returns the content type of files compressed with this codec.
	ContentType() string
}

// ByName returns a Codec from the given algorithm name or extension (with or without leading dot).
func ByName(name string) (Codec, bool) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "gzip", "gz":
		return Gzip{}, true
	case "zstd", "zst":
		return Zstd{}, true
	case "xz":
		return Xz{}, true
	case "bzip2", "bz2":
		return Bzip2{}, true
	default:
		return nil, false
	}
}

// exts maps the extensions recognised by SplitExt to their codec.
var exts = map[string]Codec{
	".gz":  Gzip{},
	".zst": Zstd{},
	".xz":  Xz{},
	".bz2": Bzip2{},
}

// shortTarExts maps the single-extension spellings of compressed tarballs to their codec.
var shortTarExts = map[string]Codec{
	".tgz":  Gzip{},
	".tzst": Zstd{},
	".txz":  Xz{},
	".tbz":  Bzip2{},
	".tbz2": Bzip2{},
}

// SplitExt inspects the given file name for a codec extension.
//
// The returned inner name has the codec extension removed, so "a.tar.gz" returns ("a.tar", Gzip{}, true). The short
// tarball spellings such as ".tgz" are expanded: "a.tgz" returns ("a.tar", Gzip{}, true).
func SplitExt(name string) (inner string, c Codec, ok bool) {
	lower := strings.ToLower(name)

	i := strings.LastIndexByte(lower, '.')
	if i == -1 {
		return name, nil, false
	}

	if c, ok = shortTarExts[lower[i:]]; ok {
		return name[:i] + ".tar", c, true
	}

	if c, ok = exts[lower[i:]]; ok {
		return name[:i], c, true
	}

	return name, nil, false
}
