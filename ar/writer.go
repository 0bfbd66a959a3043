package ar

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer provides sequential writing of an ar archive.
//
// Call WriteHeader to begin a new member, then Write to supply its data. The member must be exactly Header.Size
// bytes long; Flush (called implicitly by the next WriteHeader and by Close) fails otherwise.
type Writer struct {
	w       io.Writer
	variant Variant

	// started is true once the global header has been written.
	started bool
	// nb is the number of bytes still owed to the current member.
	nb int64
	// pad is the number of padding bytes to write after the current member.
	pad int64
	// names maps declared GNU long names to their offset in the name table.
	names  map[string]int
	closed bool
}

// NewWriter creates a new Writer writing to w using the given long name convention.
func NewWriter(w io.Writer, variant Variant) *Writer {
	return &Writer{w: w, variant: variant}
}

// DeclareNames writes the GNU extended name table.
//
// GNU archives keep all long names in a table that must precede the members using them, so a GNU Writer must learn
// every name longer than 15 characters before the first WriteHeader. Names containing '/' are rejected with ErrLongName
// since the table terminates each name with '/'. DeclareNames is a no-op for BSD writers and fails if any member has
// already been written.
func (aw *Writer) DeclareNames(names ...string) error {
	if aw.variant != GNU {
		return nil
	}
	if aw.closed {
		return ErrWriteAfterClose
	}
	if aw.started {
		return fmt.Errorf("ar: DeclareNames must be called before the first member")
	}

	var sb strings.Builder
	aw.names = make(map[string]int)
	for _, name := range names {
		if strings.Contains(name, "/") {
			return fmt.Errorf("%w: %q contains '/'", ErrLongName, name)
		}
		if !needsLongName(name, aw.variant) {
			continue
		}
		if _, ok := aw.names[name]; ok {
			continue
		}

		aw.names[name] = sb.Len()
		sb.WriteString(name)
		sb.WriteString("/\n")
	}

	if sb.Len() == 0 {
		return nil
	}

	if err := aw.writeMagic(); err != nil {
		return err
	}

	table := sb.String()
	if err := aw.writeRawHeader(gnuNameTable, "", "", "", "", int64(len(table))); err != nil {
		return err
	}

	aw.nb, aw.pad = int64(len(table)), int64(len(table)%2)
	if _, err := aw.Write([]byte(table)); err != nil {
		return err
	}

	return aw.Flush()
}

// WriteHeader finishes the current member, if any, and begins a new one.
func (aw *Writer) WriteHeader(hdr *Header) error {
	if aw.closed {
		return ErrWriteAfterClose
	}
	if err := aw.Flush(); err != nil {
		return err
	}
	if hdr.Size < 0 {
		return fmt.Errorf("ar: negative size %d for %q", hdr.Size, hdr.Name)
	}
	if err := aw.writeMagic(); err != nil {
		return err
	}

	var (
		name     = hdr.Name
		extended string
		size     = hdr.Size
	)

	switch {
	case !needsLongName(name, aw.variant):
		if aw.variant == GNU {
			name += "/"
		}

	case aw.variant == BSD:
		extended = name
		name = bsdNamePrefix + strconv.Itoa(len(extended))
		size += int64(len(extended))

	case strings.Contains(name, "/"):
		return fmt.Errorf("%w: %q contains '/'", ErrLongName, hdr.Name)

	default:
		off, ok := aw.names[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrLongName, hdr.Name)
		}
		name = "/" + strconv.Itoa(off)
	}

	if err := aw.writeRawHeader(
		name,
		strconv.FormatInt(hdr.ModTime.Unix(), 10),
		strconv.Itoa(hdr.Uid),
		strconv.Itoa(hdr.Gid),
		strconv.FormatInt(hdr.Mode, 8),
		size); err != nil {
		return err
	}

	if extended != "" {
		if _, err := io.WriteString(aw.w, extended); err != nil {
			return err
		}
	}

	aw.nb, aw.pad = hdr.Size, size%2
	return nil
}

// Write writes to the current member. ErrWriteTooLong is returned if more than Header.Size bytes are written.
func (aw *Writer) Write(p []byte) (n int, err error) {
	if aw.closed {
		return 0, ErrWriteAfterClose
	}

	overflow := false
	if int64(len(p)) > aw.nb {
		p, overflow = p[:aw.nb], true
	}

	n, err = aw.w.Write(p)
	aw.nb -= int64(n)

	if err == nil && overflow {
		err = ErrWriteTooLong
	}

	return
}

// Flush finishes the current member by writing its padding byte if needed.
//
// It fails if fewer bytes than declared were written to the member.
func (aw *Writer) Flush() error {
	if aw.nb > 0 {
		return fmt.Errorf("ar: missed writing %d bytes", aw.nb)
	}

	if aw.pad > 0 {
		if _, err := aw.w.Write([]byte{'\n'}); err != nil {
			return err
		}
		aw.pad = 0
	}

	return nil
}

// Close finishes the archive. The underlying io.Writer is not closed.
//
// An archive without any member still gets its global header.
func (aw *Writer) Close() error {
	if aw.closed {
		return nil
	}

	err := aw.Flush()
	if err == nil {
		err = aw.writeMagic()
	}

	aw.closed = true
	return err
}

func (aw *Writer) writeMagic() error {
	if aw.started {
		return nil
	}

	if _, err := io.WriteString(aw.w, Magic); err != nil {
		return err
	}

	aw.started = true
	return nil
}

func (aw *Writer) writeRawHeader(name, mtime, uid, gid, mode string, size int64) error {
	var sb strings.Builder
	sb.Grow(HeaderSize)

	for i, v := range []string{name, mtime, uid, gid, mode, strconv.FormatInt(size, 10)} {
		if len(v) > fieldSizes[i] {
			return fmt.Errorf("ar: value %q overflows %d-byte header field", v, fieldSizes[i])
		}

		sb.WriteString(v)
		sb.WriteString(strings.Repeat(" ", fieldSizes[i]-len(v)))
	}
	sb.WriteString(terminator)

	_, err := io.WriteString(aw.w, sb.String())
	return err
}

// needsLongName returns true if the name does not fit in the header's name field.
//
// GNU short names are terminated by '/' so they lose one byte and cannot contain '/'. BSD short names cannot contain
// spaces because the reader trims them, nor '/' which GNU readers would misinterpret.
func needsLongName(name string, variant Variant) bool {
	if variant == GNU {
		return len(name) > MaxShortName-1 || strings.Contains(name, "/")
	}

	return len(name) > MaxShortName || strings.ContainsAny(name, " /") || strings.HasPrefix(name, "#")
}
