package archive

import (
	"io"
)

// singleEntryWriter hands out the output itself as the content of its one and only entry.
type singleEntryWriter struct {
	w    io.Writer
	used bool
}

func (s *singleEntryWriter) create(name string, attrs *Attributes) (io.Writer, error) {
	switch {
	case s.used:
		return nil, unsupported(`single-file archive already has an entry, cannot add "%s"`, name)
	case attrs.IsSymlink:
		return nil, unsupported(`single-file archive cannot store symlink "%s"`, name)
	}

	s.used = true
	if attrs.IsDir {
		return nil, nil
	}

	return s.w, nil
}

func (s *singleEntryWriter) closeEntry() error {
	return nil
}

func (s *singleEntryWriter) setComment(string) error {
	return nil
}

func (s *singleEntryWriter) close() error {
	return nil
}
