package lst

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader parses a manifest line by line.
type Reader struct {
	s    *bufio.Scanner
	line int

	base    string
	started bool
	dir     string
	err     error
}

// NewReader creates a new Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{s: bufio.NewScanner(r)}
}

// BaseFolder returns the base folder declared on the first line, always ending with a slash.
func (lr *Reader) BaseFolder() (string, error) {
	if err := lr.start(); err != nil {
		return "", err
	}

	return lr.base, nil
}

// Next returns the next entry, or io.EOF at the end of the manifest.
func (lr *Reader) Next() (*Entry, error) {
	if lr.err != nil {
		return nil, lr.err
	}

	e, err := lr.next()
	if err != nil {
		lr.err = err
	}

	return e, err
}

func (lr *Reader) start() error {
	if lr.started {
		return lr.err
	}
	lr.started = true

	if !lr.s.Scan() {
		if lr.err = lr.s.Err(); lr.err == nil {
			lr.err = &SyntaxError{Line: 1, Err: errors.New("missing base folder")}
		}
		return lr.err
	}
	lr.line++

	base := toSlash(strings.TrimSpace(strings.TrimPrefix(lr.s.Text(), "\ufeff")))
	if base == "" {
		lr.err = &SyntaxError{Line: 1, Err: errors.New("empty base folder")}
		return lr.err
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	lr.base = base
	return nil
}

func (lr *Reader) next() (*Entry, error) {
	if err := lr.start(); err != nil {
		return nil, err
	}

	for lr.s.Scan() {
		lr.line++

		text := strings.TrimRight(lr.s.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 4 {
			return nil, &SyntaxError{Line: lr.line, Err: fmt.Errorf("expected 4 tab-separated fields, got %d", len(fields))}
		}

		size, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, &SyntaxError{Line: lr.line, Err: fmt.Errorf("invalid size: %w", err)}
		}

		modTime, err := time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(fields[2])+" "+strings.TrimSpace(fields[3]), time.Local)
		if err != nil {
			return nil, &SyntaxError{Line: lr.line, Err: fmt.Errorf("invalid date: %w", err)}
		}

		name := strings.TrimLeft(toSlash(fields[0]), "/")
		switch {
		case name == "" && strings.HasSuffix(toSlash(fields[0]), "/"):
			lr.dir = ""
			continue

		case strings.HasSuffix(name, "/"):
			lr.dir = name
			return &Entry{Path: strings.TrimSuffix(name, "/"), IsDir: true, Size: size, ModTime: modTime}, nil

		case name == "":
			return nil, &SyntaxError{Line: lr.line, Err: errors.New("empty name")}

		default:
			return &Entry{Path: lr.dir + name, Size: size, ModTime: modTime}, nil
		}
	}

	if err := lr.s.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}
