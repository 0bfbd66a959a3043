package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/nguyengg/arcs/ar"
)

type arEntryWriter struct {
	aw *ar.Writer
}

// newArEntryWriter always uses BSD extended names: GNU archives need every long name up front and cannot store names
// containing '/', which rules out entries nested in directories.
func newArEntryWriter(w io.Writer) *arEntryWriter {
	return &arEntryWriter{aw: ar.NewWriter(w, ar.BSD)}
}

// create skips directories since ar has no such concept; their files keep the full path as their name.
func (a *arEntryWriter) create(name string, attrs *Attributes) (io.Writer, error) {
	switch {
	case attrs.IsDir:
		return nil, nil
	case attrs.IsSymlink:
		return nil, unsupported(`ar cannot store symlink "%s"`, name)
	case attrs.Size < 0:
		return nil, unsupported(`ar entry "%s" must have a known size`, name)
	}

	err := a.aw.WriteHeader(&ar.Header{
		Name:    name,
		ModTime: attrs.ModTime,
		Mode:    int64(unixTypeRegular | PadPermissions(attrs.Perm, DefaultFilePermissions).Bits),
		Size:    attrs.Size,
	})
	switch {
	case errors.Is(err, ar.ErrLongName):
		return nil, fmt.Errorf(`%w: ar entry "%s": %w`, ErrUnsupportedEntry, name, err)
	case err != nil:
		return nil, fmt.Errorf(`write ar header "%s" error: %w`, name, err)
	}

	return a.aw, nil
}

func (a *arEntryWriter) closeEntry() error {
	return a.aw.Flush()
}

func (a *arEntryWriter) setComment(string) error {
	return nil
}

func (a *arEntryWriter) close() error {
	return a.aw.Close()
}
