package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is matched by errors from decoding a format's binary or text framing.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrEntryNotFound is returned when an entry's content cannot be located: the fallback scan reached the end of the
	// archive without a match, or the real file behind an lst entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnsupportedEntry is returned for contract violations such as asking for the content of a directory or creating
	// a second entry in a single-file archive.
	ErrUnsupportedEntry = errors.New("unsupported entry")

	// ErrSymlinkResolution is matched by errors from reading a symlink's target while creating its entry.
	ErrSymlinkResolution = errors.New("symlink resolution failure")

	// ErrClosed is returned by Archiver.CreateEntry after Archiver.Close.
	ErrClosed = errors.New("archiver already closed")

	// ErrEntryFinalized is returned when writing to an entry after the Archiver moved on to the next one.
	ErrEntryFinalized = errors.New("entry already finalized")

	// ErrUnknownFormat is returned when no format matches an archive's file name.
	ErrUnknownFormat = errors.New("unknown archive format")
)

// HeaderError is returned when an entry header of the named format cannot be decoded.
//
// HeaderError matches ErrMalformedHeader with errors.Is, as well as the format library's own error.
type HeaderError struct {
	Format string
	Err    error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Format, ErrMalformedHeader, e.Err)
}

func (e *HeaderError) Unwrap() []error {
	return []error{ErrMalformedHeader, e.Err}
}

// SymlinkError is returned when the target of a symlink cannot be read from the local filesystem.
type SymlinkError struct {
	Path string
	Err  error
}

func (e *SymlinkError) Error() string {
	return fmt.Sprintf(`resolve symlink "%s" error: %v`, e.Path, e.Err)
}

func (e *SymlinkError) Unwrap() []error {
	return []error{ErrSymlinkResolution, e.Err}
}

// unsupported returns an error matching ErrUnsupportedEntry.
func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedEntry, fmt.Sprintf(format, args...))
}
