package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"time"
)

type tarEntryWriter struct {
	tw       *tar.Writer
	format   tar.Format
	readlink func(string) (string, error)
}

func newTarEntryWriter(w io.Writer, opts *Options) *tarEntryWriter {
	format := tar.FormatGNU
	if opts.LongNames == LongNamesFail {
		format = tar.FormatUSTAR
	}

	return &tarEntryWriter{tw: tar.NewWriter(w), format: format, readlink: opts.Readlink}
}

func (t *tarEntryWriter) create(name string, attrs *Attributes) (io.Writer, error) {
	hdr := &tar.Header{
		Name:    name,
		ModTime: attrs.ModTime.Truncate(time.Second),
		Mode:    int64(PadPermissions(attrs.Perm, defaultPermissions(attrs.IsDir)).Bits),
		Uname:   attrs.Owner,
		Gname:   attrs.Group,
		Format:  t.format,
	}

	switch {
	case attrs.IsDir:
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
	case attrs.IsSymlink:
		target, err := attrs.linkTarget(t.readlink)
		if err != nil {
			return nil, err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = target
	case attrs.Size < 0:
		return nil, unsupported(`tar entry "%s" must have a known size`, name)
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = attrs.Size
	}

	if err := t.tw.WriteHeader(hdr); err != nil {
		if t.format == tar.FormatUSTAR {
			return nil, fmt.Errorf(`%w: tar entry "%s" does not fit a USTAR header: %w`, ErrUnsupportedEntry, name, err)
		}

		return nil, fmt.Errorf(`write tar header "%s" error: %w`, name, err)
	}

	if attrs.IsDir {
		return nil, nil
	}

	return t.tw, nil
}

// closeEntry reports entries whose content was shorter than their declared size.
func (t *tarEntryWriter) closeEntry() error {
	return t.tw.Flush()
}

func (t *tarEntryWriter) setComment(string) error {
	return nil
}

func (t *tarEntryWriter) close() error {
	return t.tw.Close()
}
