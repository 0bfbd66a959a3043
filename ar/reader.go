package ar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader provides sequential access to the members of an ar archive.
//
// Symbol tables ("/", "/SYM64/", "__.SYMDEF*") and the GNU extended name table ("//") are consumed internally and
// never returned by Next.
type Reader struct {
	r io.Reader

	// started is true once the global header has been verified.
	started bool
	// nb is the number of unread bytes of the current member's data.
	nb int64
	// pad is the number of padding bytes following the current member's data.
	pad int64
	// names is the cached GNU extended name table.
	names []byte
	// err is sticky: once Next fails, it keeps failing.
	err error
}

// NewReader creates a new Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next advances to the next member in the archive.
//
// io.EOF is returned at the end of the input, but only if it happens cleanly at a header boundary; a partial header
// or truncated member data is reported as ErrHeader instead.
func (ar *Reader) Next() (*Header, error) {
	if ar.err != nil {
		return nil, ar.err
	}

	hdr, err := ar.next()
	ar.err = err
	return hdr, err
}

func (ar *Reader) next() (*Header, error) {
	if !ar.started {
		if err := ar.readMagic(); err != nil {
			return nil, err
		}
		ar.started = true
	}

	for {
		if err := ar.skipUnread(); err != nil {
			return nil, err
		}

		var buf [HeaderSize]byte
		switch _, err := io.ReadFull(ar.r, buf[:]); {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: truncated member header", ErrHeader)
		case err != nil:
			// a clean io.EOF here is the end of the archive.
			return nil, err
		}

		hdr, err := parseHeader(buf)
		if err != nil {
			return nil, err
		}

		ar.nb = hdr.Size
		ar.pad = hdr.Size % 2

		switch name := hdr.Name; {
		case name == gnuNameTable:
			if hdr.Size > maxNameTableSize {
				return nil, fmt.Errorf("%w: GNU name table of %d bytes exceeds limit", ErrHeader, hdr.Size)
			}

			names, err := readMetadata(ar.r, hdr.Size)
			if err != nil {
				return nil, truncated(err, "GNU name table")
			}
			ar.names = names
			ar.nb = 0
			continue

		case name == "/", name == "/SYM64/":
			continue

		case strings.HasPrefix(name, bsdNamePrefix):
			n, err := strconv.ParseInt(name[len(bsdNamePrefix):], 10, 64)
			if err != nil || n < 0 || n > hdr.Size || n > maxExtendedNameSize {
				return nil, fmt.Errorf("%w: invalid BSD extended name length %q", ErrHeader, name)
			}

			b, err := readMetadata(ar.r, n)
			if err != nil {
				return nil, truncated(err, "BSD extended name")
			}

			hdr.Name = string(bytes.TrimRight(b, "\x00"))
			hdr.Size -= n
			ar.nb = hdr.Size

		case len(name) > 1 && name[0] == '/' && isDigits(name[1:]):
			if hdr.Name, err = ar.lookupName(name[1:]); err != nil {
				return nil, err
			}

		case strings.HasSuffix(name, "/"):
			hdr.Name = strings.TrimSuffix(name, "/")
		}

		if strings.HasPrefix(hdr.Name, "__.SYMDEF") {
			continue
		}

		return hdr, nil
	}
}

// Read reads from the current member's data. It returns (0, io.EOF) once the member has been fully read.
func (ar *Reader) Read(p []byte) (n int, err error) {
	if ar.nb <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > ar.nb {
		p = p[:ar.nb]
	}

	n, err = ar.r.Read(p)
	ar.nb -= int64(n)

	if errors.Is(err, io.EOF) && ar.nb > 0 {
		err = io.ErrUnexpectedEOF
	}

	return
}

func (ar *Reader) readMagic() error {
	buf := make([]byte, len(Magic))
	switch _, err := io.ReadFull(ar.r, buf); {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: missing global header", ErrHeader)
	case err != nil:
		return err
	case string(buf) != Magic:
		return fmt.Errorf("%w: bad magic %q", ErrHeader, buf)
	}

	return nil
}

// skipUnread discards whatever the caller did not read of the current member, plus its padding.
func (ar *Reader) skipUnread() error {
	if ar.nb > 0 {
		n, err := io.CopyN(io.Discard, ar.r, ar.nb)
		ar.nb -= n
		if err != nil {
			return truncated(err, "member data")
		}
	}

	if ar.pad > 0 {
		// some writers omit the padding of the last member.
		if _, err := io.CopyN(io.Discard, ar.r, ar.pad); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		ar.pad = 0
	}

	return nil
}

// lookupName resolves a GNU "/<offset>" reference against the cached name table.
//
// The name runs from offset up to the first '/' (GNU terminates every table entry with "/\n").
func (ar *Reader) lookupName(ref string) (string, error) {
	off, err := strconv.Atoi(ref)
	if err != nil || ar.names == nil || off >= len(ar.names) {
		return "", fmt.Errorf("%w: unresolvable GNU extended name /%s", ErrHeader, ref)
	}

	s := ar.names[off:]
	if i := bytes.IndexAny(s, "/\n"); i >= 0 {
		s = s[:i]
	}

	return string(s), nil
}

func parseHeader(buf [HeaderSize]byte) (*Header, error) {
	s := slicer(buf[:])
	var fields [len(fieldSizes)][]byte
	for i, n := range fieldSizes {
		fields[i] = s.next(n)
	}

	if string(fields[6]) != terminator {
		return nil, fmt.Errorf("%w: bad header terminator %q", ErrHeader, fields[6])
	}

	hdr := &Header{Name: strings.TrimRight(string(fields[0]), " ")}

	// the GNU name table carries no date.
	if hdr.Name != gnuNameTable {
		sec, err := parseDecimal(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid mtime field: %w", ErrHeader, err)
		}
		hdr.ModTime = time.Unix(sec, 0)
	}

	size, err := parseDecimal(fields[5])
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: invalid size field %q", ErrHeader, fields[5])
	}
	hdr.Size = size

	// owner, group and mode are informational only; deterministic archives leave them blank or zero and some
	// writers put garbage there, so they never fail the header.
	if v, err := parseDecimal(fields[2]); err == nil {
		hdr.Uid = int(v)
	}
	if v, err := parseDecimal(fields[3]); err == nil {
		hdr.Gid = int(v)
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(string(fields[4])), 8, 64); err == nil {
		hdr.Mode = v
	}

	return hdr, nil
}

func parseDecimal(b []byte) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return s != ""
}

// readMetadata reads exactly n bytes without trusting n for the allocation up front.
func readMetadata(r io.Reader, n int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, n))
	if err == nil && int64(len(b)) < n {
		err = io.ErrUnexpectedEOF
	}

	return b, err
}

func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrHeader, what)
	}

	return err
}
