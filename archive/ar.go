package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/nguyengg/arcs/ar"
	"github.com/nguyengg/arcs/codec"
)

// ArFormat decodes Unix ar archives in either the BSD or GNU flavour.
//
// ar carries no usable permissions for our purpose, so every entry has DefaultFilePermissions. There are no
// directories or symlinks either.
type ArFormat struct {
	// Codec if given decodes the stream before ar does.
	Codec codec.Codec
}

var _ Format[*ar.Header] = ArFormat{}

func (f ArFormat) Name() string {
	if f.Codec != nil {
		return "ar" + f.Codec.Ext()
	}

	return "ar"
}

func (f ArFormat) NewIterator(src io.Reader) (Iterator[*ar.Header], error) {
	var dec io.ReadCloser
	if f.Codec != nil {
		var err error
		if dec, err = f.Codec.NewDecoder(src); err != nil {
			return nil, fmt.Errorf("create %s decoder error: %w", f.Name(), err)
		}
	} else {
		dec = io.NopCloser(src)
	}

	return &arIterator{dec: dec, ar: ar.NewReader(dec)}, nil
}

type arIterator struct {
	dec io.ReadCloser
	ar  *ar.Reader
	cur *Record[*ar.Header]
}

func (it *arIterator) Next() (*Record[*ar.Header], error) {
	it.cur = nil

	hdr, err := it.ar.Next()
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, ar.ErrHeader):
		return nil, &HeaderError{Format: "ar", Err: err}
	case err != nil:
		return nil, err
	}

	name, _ := cleanPath(hdr.Name)
	it.cur = &Record[*ar.Header]{
		Entry: Entry{
			Path:      name,
			ModTime:   hdr.ModTime,
			Size:      hdr.Size,
			ExactSize: true,
			Perm:      PadPermissions(PermissionBits{}, DefaultFilePermissions),
		},
		Handle: hdr,
	}
	return it.cur, nil
}

func (it *arIterator) Current() *Record[*ar.Header] {
	return it.cur
}

func (it *arIterator) Content() (io.Reader, error) {
	if it.cur == nil {
		return nil, fmt.Errorf("ar: no current entry")
	}

	return it.ar, nil
}

func (it *arIterator) Close() error {
	it.cur = nil
	return it.dec.Close()
}
