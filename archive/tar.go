package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyengg/arcs/codec"
)

// TarFormat decodes tar archives, optionally wrapped in a codec such as gzip.
type TarFormat struct {
	// Codec if given decodes the stream before tar does.
	Codec codec.Codec
}

var _ Format[*tar.Header] = TarFormat{}

// Name returns "tar" or the compressed tarball name such as "tar.gz".
func (f TarFormat) Name() string {
	if f.Codec != nil {
		return "tar" + f.Codec.Ext()
	}

	return "tar"
}

func (f TarFormat) NewIterator(src io.Reader) (Iterator[*tar.Header], error) {
	var dec io.ReadCloser
	if f.Codec != nil {
		var err error
		if dec, err = f.Codec.NewDecoder(src); err != nil {
			return nil, fmt.Errorf("create %s decoder error: %w", f.Name(), err)
		}
	} else {
		dec = io.NopCloser(src)
	}

	return &tarIterator{dec: dec, tr: tar.NewReader(dec)}, nil
}

type tarIterator struct {
	dec io.ReadCloser
	tr  *tar.Reader
	cur *Record[*tar.Header]
}

func (it *tarIterator) Next() (*Record[*tar.Header], error) {
	it.cur = nil

	for {
		hdr, err := it.tr.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case errors.Is(err, tar.ErrInsecurePath) && hdr != nil:
			// names are normalized below; whoever extracts must still refuse paths escaping its root.
		case errors.Is(err, tar.ErrHeader), errors.Is(err, io.ErrUnexpectedEOF):
			return nil, &HeaderError{Format: "tar", Err: err}
		case err != nil:
			return nil, err
		}

		// PAX global headers apply to the entries that follow; archive/tar already merges them.
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		it.cur = &Record[*tar.Header]{Entry: tarEntry(hdr), Handle: hdr}
		return it.cur, nil
	}
}

func (it *tarIterator) Current() *Record[*tar.Header] {
	return it.cur
}

func (it *tarIterator) Content() (io.Reader, error) {
	if it.cur == nil {
		return nil, fmt.Errorf("tar: no current entry")
	}

	return it.tr, nil
}

func (it *tarIterator) Close() error {
	it.cur = nil
	return it.dec.Close()
}

func tarEntry(hdr *tar.Header) Entry {
	name, trailing := cleanPath(hdr.Name)

	e := Entry{
		Path:      name,
		IsDir:     hdr.Typeflag == tar.TypeDir || trailing,
		ModTime:   hdr.ModTime,
		Size:      hdr.Size,
		ExactSize: true,
		Owner:     hdr.Uname,
		Group:     hdr.Gname,
	}

	switch hdr.Typeflag {
	case tar.TypeSymlink:
		e.IsSymlink = true
		e.LinkTarget = hdr.Linkname
		e.Size = 0
	case tar.TypeLink:
		e.LinkTarget = strings.TrimPrefix(hdr.Linkname, "./")
	}

	if e.IsDir {
		e.Size = 0
	}

	e.Perm = PadPermissions(FullPermissions(Permissions(hdr.Mode&0o777)), defaultPermissions(e.IsDir))
	return e
}
