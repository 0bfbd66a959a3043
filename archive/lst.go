package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nguyengg/arcs/lst"
)

// LstFormat decodes lst manifests.
//
// A manifest embeds no content: the content of an entry is the real file at the entry's path under the manifest's base
// folder, so LstFormat implements ContentOpener and never uses the fast path or the fallback scan.
type LstFormat struct {
	// BaseFolder if given replaces the base folder declared by the manifest.
	BaseFolder string

	// Open opens the real file behind an entry. Defaults to os.Open.
	Open func(name string) (io.ReadCloser, error)
}

var (
	_ Format[lst.Handle]        = LstFormat{}
	_ ContentOpener[lst.Handle] = LstFormat{}
)

func (f LstFormat) Name() string {
	return "lst"
}

func (f LstFormat) NewIterator(src io.Reader) (Iterator[lst.Handle], error) {
	lr := lst.NewReader(src)

	base, err := lr.BaseFolder()
	if err != nil {
		return nil, lstError(err)
	}
	if f.BaseFolder != "" {
		base = filepath.ToSlash(f.BaseFolder)
	}

	return &lstIterator{lr: lr, handle: lst.Handle{BaseFolder: base}}, nil
}

// OpenContent opens the real file behind rec.
//
// A missing file is reported as ErrEntryNotFound even though the manifest itself is well-formed.
func (f LstFormat) OpenContent(rec *Record[lst.Handle]) (io.ReadCloser, error) {
	if rec.IsDir {
		return nil, unsupported(`"%s" is a directory`, rec.Path)
	}

	open := f.Open
	if open == nil {
		open = func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		}
	}

	name := filepath.Join(filepath.FromSlash(rec.Handle.BaseFolder), filepath.FromSlash(rec.Path))
	rc, err := open(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf(`%w: "%s" listed in manifest but "%s" does not exist`, ErrEntryNotFound, rec.Path, name)
	case err != nil:
		return nil, fmt.Errorf(`open file "%s" error: %w`, name, err)
	}

	return rc, nil
}

type lstIterator struct {
	lr     *lst.Reader
	handle lst.Handle
	cur    *Record[lst.Handle]
}

func (it *lstIterator) Next() (*Record[lst.Handle], error) {
	it.cur = nil

	e, err := it.lr.Next()
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case err != nil:
		return nil, lstError(err)
	}

	size := e.Size
	if e.IsDir {
		size = 0
	}

	it.cur = &Record[lst.Handle]{
		Entry: Entry{
			Path:      e.Path,
			IsDir:     e.IsDir,
			ModTime:   e.ModTime,
			Size:      size,
			ExactSize: true,
			Perm:      PadPermissions(PermissionBits{}, defaultPermissions(e.IsDir)),
		},
		Handle: it.handle,
	}
	return it.cur, nil
}

func (it *lstIterator) Current() *Record[lst.Handle] {
	return it.cur
}

// Content is never used since LstFormat implements ContentOpener.
func (it *lstIterator) Content() (io.Reader, error) {
	return nil, unsupported("lst manifests embed no content")
}

func (it *lstIterator) Close() error {
	it.cur = nil
	return nil
}

func lstError(err error) error {
	if errors.Is(err, lst.ErrSyntax) {
		return &HeaderError{Format: "lst", Err: err}
	}

	return err
}
