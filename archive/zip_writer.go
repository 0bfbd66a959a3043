package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/flate"
)

const defaultZipLevel = flate.BestCompression

type zipEntryWriter struct {
	zw       *zip.Writer
	method   uint16
	readlink func(string) (string, error)
}

func newZipEntryWriter(w io.Writer, opts *Options) *zipEntryWriter {
	zw := zip.NewWriter(w)
	level := opts.ZipLevel
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	return &zipEntryWriter{zw: zw, method: opts.ZipMethod, readlink: opts.Readlink}
}

// create writes the Unix mode both as external attributes and as an ASi extra field, the latter being the only one
// visible to readers that stream the local file headers.
func (z *zipEntryWriter) create(name string, attrs *Attributes) (io.Writer, error) {
	perm := PadPermissions(attrs.Perm, defaultPermissions(attrs.IsDir))
	mode := perm.FileMode()
	asi := &asiExtra{Mode: uint16(perm.Bits)}

	fh := &zip.FileHeader{
		Name:     name,
		Method:   z.method,
		Modified: attrs.ModTime,
	}

	var target string
	switch {
	case attrs.IsDir:
		fh.Name += "/"
		mode |= fs.ModeDir
		asi.Mode |= unixTypeDir
	case attrs.IsSymlink:
		var err error
		if target, err = attrs.linkTarget(z.readlink); err != nil {
			return nil, err
		}
		mode |= fs.ModeSymlink
		asi.Mode |= unixTypeSymlink
		asi.Link = target
	default:
		asi.Mode |= unixTypeRegular
	}

	fh.SetMode(mode)
	fh.Extra = asi.marshal()

	fw, err := z.zw.CreateHeader(fh)
	if err != nil {
		return nil, fmt.Errorf(`create zip entry "%s" error: %w`, name, err)
	}

	switch {
	case attrs.IsDir:
		return nil, nil
	case attrs.IsSymlink:
		if _, err = io.WriteString(fw, target); err != nil {
			return nil, fmt.Errorf(`write zip symlink "%s" error: %w`, name, err)
		}
		return io.Discard, nil
	}

	return fw, nil
}

// closeEntry has nothing to do: zip.Writer finalizes an entry when the next one is created.
func (z *zipEntryWriter) closeEntry() error {
	return nil
}

func (z *zipEntryWriter) setComment(comment string) error {
	return z.zw.SetComment(comment)
}

func (z *zipEntryWriter) close() error {
	return z.zw.Close()
}
