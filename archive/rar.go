package archive

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/nwaples/rardecode"
)

// RarFormat decodes RAR archives, forward only. It is read-only, and neither encrypted nor multi-volume archives are
// supported.
type RarFormat struct {
}

var _ Format[*rardecode.FileHeader] = RarFormat{}

func (f RarFormat) Name() string {
	return "rar"
}

func (f RarFormat) NewIterator(src io.Reader) (Iterator[*rardecode.FileHeader], error) {
	rr, err := rardecode.NewReader(src, "")
	if err != nil {
		return nil, &HeaderError{Format: "rar", Err: err}
	}

	return &rarIterator{rr: rr}, nil
}

type rarIterator struct {
	rr  *rardecode.Reader
	cur *Record[*rardecode.FileHeader]
}

func (it *rarIterator) Next() (*Record[*rardecode.FileHeader], error) {
	it.cur = nil

	fh, err := it.rr.Next()
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err != nil:
		return nil, &HeaderError{Format: "rar", Err: err}
	}

	e := rarEntry(fh)
	if e.IsSymlink {
		data, err := io.ReadAll(io.LimitReader(it.rr, maxLinkTarget))
		if err != nil {
			return nil, fmt.Errorf(`read rar symlink "%s" error: %w`, e.Path, err)
		}
		e.LinkTarget = string(data)
	}

	it.cur = &Record[*rardecode.FileHeader]{Entry: e, Handle: fh}
	return it.cur, nil
}

func (it *rarIterator) Current() *Record[*rardecode.FileHeader] {
	return it.cur
}

func (it *rarIterator) Content() (io.Reader, error) {
	switch {
	case it.cur == nil:
		return nil, fmt.Errorf("rar: no current entry")
	case it.cur.IsSymlink:
		return strings.NewReader(it.cur.LinkTarget), nil
	}

	return it.rr, nil
}

func (it *rarIterator) Close() error {
	it.cur = nil
	return nil
}

// rarEntry normalizes a RAR header. Only archives created on Unix carry permissions and symlinks.
func rarEntry(fh *rardecode.FileHeader) Entry {
	mode := fh.Mode()
	name, trailing := cleanPath(strings.ReplaceAll(fh.Name, `\`, "/"))

	e := Entry{
		Path:      name,
		IsDir:     fh.IsDir || trailing,
		ModTime:   fh.ModificationTime,
		Size:      fh.UnPackedSize,
		ExactSize: !fh.UnKnownSize,
	}

	if fh.UnKnownSize {
		e.Size = UnknownSize
	}
	if fh.HostOS == rardecode.HostOSUnix {
		e.Perm = FullPermissions(Permissions(mode.Perm()))
		e.IsSymlink = !e.IsDir && mode&fs.ModeSymlink != 0
	}
	if e.IsDir {
		e.Size = 0
	}

	e.Perm = PadPermissions(e.Perm, defaultPermissions(e.IsDir))
	return e
}
