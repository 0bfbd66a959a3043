package lst

import (
	"bufio"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// Writer produces a manifest that Reader can parse back.
//
// Names are written with backslash separators, which every lst consumer understands.
type Writer struct {
	w      *bufio.Writer
	base   string
	dir    string
	header bool
	closed bool
}

// NewWriter creates a new Writer for entries relative to baseFolder.
func NewWriter(w io.Writer, baseFolder string) *Writer {
	return &Writer{w: bufio.NewWriter(w), base: baseFolder}
}

// WriteEntry appends one entry. Files are written relative to their parent directory, emitting a directory line
// first whenever the parent changes; readers see such a line as a directory entry, so returning to a directory that
// was already written repeats it.
func (lw *Writer) WriteEntry(e *Entry) error {
	if lw.closed {
		return errors.New("lst: write after close")
	}
	if err := lw.writeHeader(); err != nil {
		return err
	}

	p := strings.Trim(toSlash(e.Path), "/")
	if p == "" {
		return errors.New("lst: empty path")
	}

	if e.IsDir {
		lw.dir = p + "/"
		return lw.writeLine(lw.dir, e)
	}

	dir, name := path.Split(p)
	if dir != lw.dir {
		lw.dir = dir
		if dir == "" {
			// back to the base folder.
			if err := lw.writeLine("/", &Entry{ModTime: e.ModTime}); err != nil {
				return err
			}
		} else if err := lw.writeLine(dir, &Entry{ModTime: e.ModTime}); err != nil {
			return err
		}
	}

	return lw.writeLine(name, e)
}

// Close flushes the manifest. The underlying io.Writer is not closed.
func (lw *Writer) Close() error {
	if lw.closed {
		return nil
	}
	lw.closed = true

	if err := lw.writeHeader(); err != nil {
		return err
	}

	return lw.w.Flush()
}

func (lw *Writer) writeHeader() error {
	if lw.header {
		return nil
	}
	lw.header = true

	_, err := lw.w.WriteString(strings.ReplaceAll(lw.base, "/", "\\") + "\r\n")
	return err
}

func (lw *Writer) writeLine(name string, e *Entry) error {
	t := e.ModTime.In(time.Local)
	_, err := lw.w.WriteString(strings.ReplaceAll(name, "/", "\\") + "\t" +
		strconv.FormatInt(max(e.Size, 0), 10) + "\t" +
		t.Format(DateLayout) + "\t" +
		t.Format(TimeLayout) + "\r\n")
	return err
}
