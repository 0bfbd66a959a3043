package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLinkTarget bounds how much of a symlink entry's content is read as its target.
const maxLinkTarget = 4096

// zip creator host IDs whose external attributes carry a Unix mode.
const (
	creatorUnix  = 3
	creatorMacOS = 19
)

// ZipFormat decodes zip archives.
//
// If the stream given to NewIterator is an io.ReaderAt with a known size (a regular *os.File, *bytes.Reader, etc.),
// entries are read from the central directory. Otherwise, the archive is scanned forward one local file header at a
// time, which cannot see the central directory's external attributes or comments.
type ZipFormat struct {
}

var _ Format[*zip.FileHeader] = ZipFormat{}

func (f ZipFormat) Name() string {
	return "zip"
}

func (f ZipFormat) NewIterator(src io.Reader) (Iterator[*zip.FileHeader], error) {
	if ra, size, ok := readerAtSize(src); ok {
		zr, err := zip.NewReader(ra, size)
		switch {
		case errors.Is(err, zip.ErrInsecurePath) && zr != nil:
		case errors.Is(err, zip.ErrFormat):
			return nil, &HeaderError{Format: "zip", Err: err}
		case err != nil:
			return nil, fmt.Errorf("open zip archive error: %w", err)
		}

		return &zipIterator{zr: zr}, nil
	}

	return newZipStreamIterator(src), nil
}

// readerAtSize returns src as an io.ReaderAt along with its size if src supports random access.
func readerAtSize(src io.Reader) (io.ReaderAt, int64, bool) {
	ra, ok := src.(io.ReaderAt)
	if !ok {
		return nil, 0, false
	}

	switch v := src.(type) {
	case interface{ Size() int64 }:
		return ra, v.Size(), true
	case interface{ Stat() (os.FileInfo, error) }:
		if fi, err := v.Stat(); err == nil && fi.Mode().IsRegular() {
			return ra, fi.Size(), true
		}
	}

	return nil, 0, false
}

// zipIterator walks the central directory.
type zipIterator struct {
	zr  *zip.Reader
	i   int
	f   *zip.File
	cur *Record[*zip.FileHeader]
	rc  io.ReadCloser
}

func (it *zipIterator) Next() (*Record[*zip.FileHeader], error) {
	if err := it.release(); err != nil {
		return nil, err
	}

	if it.i >= len(it.zr.File) {
		return nil, io.EOF
	}

	it.f = it.zr.File[it.i]
	it.i++

	e := zipEntry(&it.f.FileHeader, parseZipExtra(it.f.Extra, it.f.UncompressedSize, it.f.CompressedSize))
	if e.IsSymlink && e.LinkTarget == "" {
		target, err := readLinkTarget(it.f.Open)
		if err != nil {
			return nil, fmt.Errorf(`read zip symlink "%s" error: %w`, e.Path, err)
		}
		e.LinkTarget = target
	}

	it.cur = &Record[*zip.FileHeader]{Entry: e, Handle: &it.f.FileHeader}
	return it.cur, nil
}

func (it *zipIterator) Current() *Record[*zip.FileHeader] {
	return it.cur
}

func (it *zipIterator) Content() (io.Reader, error) {
	switch {
	case it.cur == nil:
		return nil, fmt.Errorf("zip: no current entry")
	case it.cur.IsSymlink:
		return strings.NewReader(it.cur.LinkTarget), nil
	case it.rc != nil:
		return it.rc, nil
	}

	rc, err := it.f.Open()
	if err != nil {
		return nil, fmt.Errorf(`open zip entry "%s" error: %w`, it.cur.Path, err)
	}

	it.rc = rc
	return rc, nil
}

func (it *zipIterator) Close() error {
	return it.release()
}

func (it *zipIterator) release() error {
	it.cur = nil
	if it.rc == nil {
		return nil
	}

	rc := it.rc
	it.rc = nil
	return rc.Close()
}

func readLinkTarget(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(rc, maxLinkTarget))
	if err == nil {
		err = rc.Close()
	} else {
		_ = rc.Close()
	}

	return string(data), err
}

// zipEntry normalizes a zip header.
//
// The Unix mode comes from the ASi extra field if present, then from the external attributes of archives created on
// Unix or macOS. Otherwise, no permission bit is known and all of them are padded with the defaults.
func zipEntry(fh *zip.FileHeader, x zipExtra) Entry {
	name, trailing := cleanPath(strings.ReplaceAll(fh.Name, `\`, "/"))

	e := Entry{
		Path:      name,
		IsDir:     trailing,
		ModTime:   fh.Modified,
		Size:      int64(fh.UncompressedSize64),
		ExactSize: true,
	}

	var (
		mode  uint32
		known bool
	)
	switch creator := fh.CreatorVersion >> 8; {
	case x.asi != nil:
		mode, known = uint32(x.asi.Mode), true
		e.LinkTarget = x.asi.Link
	case creator == creatorUnix || creator == creatorMacOS:
		mode, known = fh.ExternalAttrs>>16, true
	}

	if known {
		switch mode & unixTypeMask {
		case unixTypeDir:
			e.IsDir = true
		case unixTypeSymlink:
			e.IsSymlink = !e.IsDir
		}
		e.Perm = FullPermissions(Permissions(mode & 0o777))
	}

	// MS-DOS directory attribute.
	if fh.ExternalAttrs&0x10 != 0 && fh.CreatorVersion>>8 == 0 {
		e.IsDir = true
	}

	if !e.IsSymlink {
		e.LinkTarget = ""
	}
	if e.IsDir {
		e.Size = 0
	}

	e.Perm = PadPermissions(e.Perm, defaultPermissions(e.IsDir))
	return e
}
