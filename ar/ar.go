// Package ar reads and writes Unix ar archives, including the BSD (#1/len) and GNU (// table) conventions for
// member names longer than 16 characters.
//
// The API mirrors archive/tar: Reader.Next advances to the next member and Reader.Read reads its data, while
// Writer.WriteHeader starts a member whose data is then written with Writer.Write.
//
// See https://en.wikipedia.org/wiki/Ar_(Unix)#File_format_details.
package ar

import (
	"errors"
	"time"
)

const (
	// Magic is the global header that every ar archive starts with.
	Magic = "!<arch>\n"

	// HeaderSize is the size of the fixed-width member header.
	HeaderSize = 60

	// MaxShortName is the longest name that fits in the 16-byte name field.
	MaxShortName = 16

	// bsdNamePrefix marks a BSD extended name whose length is given in decimal after the prefix.
	bsdNamePrefix = "#1/"

	// gnuNameTable is the name of the GNU extended name table member.
	gnuNameTable = "//"

	// maxNameTableSize caps the GNU name table, which is read into memory.
	maxNameTableSize = 16 << 20

	// maxExtendedNameSize caps a single BSD extended name.
	maxExtendedNameSize = 4096
)

var (
	// ErrHeader is returned when the magic or a member header cannot be decoded.
	ErrHeader = errors.New("ar: invalid header")

	// ErrWriteTooLong is returned when more data is written than the header declared.
	ErrWriteTooLong = errors.New("ar: write too long")

	// ErrWriteAfterClose is returned by Writer methods after Close has been called.
	ErrWriteAfterClose = errors.New("ar: write after close")

	// ErrLongName is returned by a GNU Writer when a name longer than 15 characters was not declared with
	// Writer.DeclareNames before the first member, or when a name contains '/'.
	ErrLongName = errors.New("ar: undeclared long name")
)

// Variant selects the long name convention used by Writer.
type Variant int

const (
	// BSD stores long names as "#1/<len>" followed by the name at the start of the member data.
	BSD Variant = iota

	// GNU stores long names in a "//" table member and refers to them with "/<offset>".
	GNU
)

func (v Variant) String() string {
	switch v {
	case BSD:
		return "bsd"
	case GNU:
		return "gnu"
	default:
		return "unknown"
	}
}

// Header is the decoded form of one member header.
//
// Size is the length of the member's data as seen by the caller: for BSD extended names, the bytes holding the name
// are already subtracted.
type Header struct {
	Name    string
	ModTime time.Time
	Uid     int
	Gid     int
	Mode    int64
	Size    int64
}

// field layout of the 60-byte header: name, mtime, uid, gid, mode, size, terminator.
var fieldSizes = [...]int{16, 12, 6, 6, 8, 10, 2}

const terminator = "`\n"

type slicer []byte

func (sp *slicer) next(n int) (b []byte) {
	s := *sp
	b, *sp = s[0:n], s[n:]
	return
}
