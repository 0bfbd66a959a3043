package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/bodgit/sevenzip"
)

// SevenZipFormat decodes 7z archives. It is read-only.
//
// 7z keeps its headers at the end of the archive, so the stream given to NewIterator must be an io.ReaderAt with a
// known size; FileSource and BytesSource both qualify.
type SevenZipFormat struct {
}

var _ Format[*sevenzip.FileHeader] = SevenZipFormat{}

func (f SevenZipFormat) Name() string {
	return "7z"
}

func (f SevenZipFormat) NewIterator(src io.Reader) (Iterator[*sevenzip.FileHeader], error) {
	ra, size, ok := readerAtSize(src)
	if !ok {
		return nil, errors.New("7z archives must be opened with random access")
	}

	zr, err := sevenzip.NewReader(ra, size)
	if err != nil {
		return nil, &HeaderError{Format: "7z", Err: err}
	}

	return &sevenZipIterator{zr: zr}, nil
}

type sevenZipIterator struct {
	zr  *sevenzip.Reader
	i   int
	f   *sevenzip.File
	cur *Record[*sevenzip.FileHeader]
	rc  io.ReadCloser
}

func (it *sevenZipIterator) Next() (*Record[*sevenzip.FileHeader], error) {
	if err := it.release(); err != nil {
		return nil, err
	}

	if it.i >= len(it.zr.File) {
		return nil, io.EOF
	}

	it.f = it.zr.File[it.i]
	it.i++

	e := sevenZipEntry(&it.f.FileHeader)
	if e.IsSymlink {
		target, err := readLinkTarget(it.f.Open)
		if err != nil {
			return nil, fmt.Errorf(`read 7z symlink "%s" error: %w`, e.Path, err)
		}
		e.LinkTarget = target
	}

	it.cur = &Record[*sevenzip.FileHeader]{Entry: e, Handle: &it.f.FileHeader}
	return it.cur, nil
}

func (it *sevenZipIterator) Current() *Record[*sevenzip.FileHeader] {
	return it.cur
}

func (it *sevenZipIterator) Content() (io.Reader, error) {
	switch {
	case it.cur == nil:
		return nil, fmt.Errorf("7z: no current entry")
	case it.cur.IsSymlink:
		return strings.NewReader(it.cur.LinkTarget), nil
	case it.rc != nil:
		return it.rc, nil
	}

	rc, err := it.f.Open()
	if err != nil {
		return nil, fmt.Errorf(`open 7z entry "%s" error: %w`, it.cur.Path, err)
	}

	it.rc = rc
	return rc, nil
}

func (it *sevenZipIterator) Close() error {
	return it.release()
}

func (it *sevenZipIterator) release() error {
	it.cur = nil
	if it.rc == nil {
		return nil
	}

	rc := it.rc
	it.rc = nil
	return rc.Close()
}

// sevenZipEntry normalizes a 7z header.
//
// Archives created on Unix carry the mode in the upper half of the attributes; others only have the MS-DOS attributes,
// from which no permission bit is taken.
func sevenZipEntry(fh *sevenzip.FileHeader) Entry {
	mode := fh.Mode()
	name, trailing := cleanPath(strings.ReplaceAll(fh.Name, `\`, "/"))

	e := Entry{
		Path:      name,
		IsDir:     trailing || mode.IsDir(),
		ModTime:   fh.Modified,
		Size:      int64(fh.UncompressedSize),
		ExactSize: true,
		IsSymlink: mode&fs.ModeSymlink != 0,
	}

	if fh.Attributes&0xf0000000 != 0 {
		e.Perm = FullPermissions(Permissions(mode.Perm()))
	}
	if e.IsDir {
		e.Size = 0
		e.IsSymlink = false
	}

	e.Perm = PadPermissions(e.Perm, defaultPermissions(e.IsDir))
	return e
}
