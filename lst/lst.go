// Package lst reads and writes "lst" file lists: plain-text manifests describing files that live on the real
// filesystem under a base folder.
//
// The first line is the base folder. Every following non-empty line describes one entry with tab-separated fields:
//
//	name	size	date	time
//
// Dates use the layout "2006.01.02" and times "15.04.05", in local time. Names use either separator; a name ending in
// a separator is a directory, and file names that follow are relative to the last directory seen. A directory line
// consisting of a lone separator resets the current directory to the base folder.
package lst

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the layout of the date field.
	DateLayout = "2006.01.02"
	// TimeLayout is the layout of the time field.
	TimeLayout = "15.04.05"
)

// ErrSyntax is matched by every SyntaxError.
var ErrSyntax = errors.New("lst: syntax error")

// SyntaxError describes a line that could not be parsed.
type SyntaxError struct {
	// Line is the 1-based line number.
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("lst: line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() []error {
	return []error{ErrSyntax, e.Err}
}

// Entry is one line of the manifest.
//
// Path is relative to the base folder, uses forward slashes, and never ends with a slash.
type Entry struct {
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

func toSlash(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

// Handle locates the real file behind an entry: the entry's path is relative to BaseFolder.
type Handle struct {
	BaseFolder string
}
