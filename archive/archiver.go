package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nguyengg/arcs/codec"
)

// Kind selects the container format written by an Archiver.
type Kind int

const (
	// KindTar writes tar archives.
	KindTar Kind = iota
	// KindZip writes zip archives.
	KindZip
	// KindAr writes Unix ar archives.
	KindAr
	// KindSingleFile writes the content of exactly one file with no container around it, usually through a codec.
	KindSingleFile
)

func (k Kind) String() string {
	switch k {
	case KindTar:
		return "tar"
	case KindZip:
		return "zip"
	case KindAr:
		return "ar"
	case KindSingleFile:
		return "single file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// LongNameMode controls how tar archives deal with names that do not fit a USTAR header.
type LongNameMode int

const (
	// LongNamesGNU writes GNU headers, which encode long names and link targets in extra records.
	LongNamesGNU LongNameMode = iota
	// LongNamesFail writes strict USTAR headers; entries that do not fit fail with ErrUnsupportedEntry.
	LongNamesFail
)

// Options customises NewArchiver.
type Options struct {
	// Codec if given compresses the output of tar, ar, and single-file archives.
	Codec codec.Codec

	// LongNames applies to tar archives. Defaults to LongNamesGNU.
	LongNames LongNameMode

	// ZipMethod is the compression method of zip entries. Defaults to zip.Deflate.
	//
	// archive/zip always defers the sizes of files to a data descriptor, which a streaming reader can only get past for
	// deflated entries, so zip.Store yields archives that need random access to be read.
	ZipMethod uint16

	// ZipLevel is the flate compression level of zip.Deflate entries. Defaults to flate.BestCompression.
	ZipLevel int

	// Readlink resolves the target of symlinks from Attributes.LocalPath. Defaults to os.Readlink.
	Readlink func(name string) (string, error)
}

// Archiver writes an archive one entry at a time.
//
// Only one entry is open at any time: CreateEntry finalizes the previous entry before starting the next one, and the
// previous entry's writer fails with ErrEntryFinalized from then on. An Archiver is not safe for concurrent use.
type Archiver struct {
	kind  Kind
	dst   io.Writer
	enc   io.WriteCloser
	w     entryWriter
	state state
	// seq identifies the open entry so that stale writers can be detected.
	seq int
}

type state int

const (
	stateNoEntry state = iota
	stateEntryOpen
	stateClosed
)

// entryWriter is implemented by each container format.
type entryWriter interface {
	// create starts a new entry. It returns a nil io.Writer for entries that have no content.
	create(name string, attrs *Attributes) (io.Writer, error)
	// closeEntry finalizes the entry started by the last create.
	closeEntry() error
	setComment(comment string) error
	// close writes the archive's trailer without closing the underlying io.Writer.
	close() error
}

// NewArchiver creates a new Archiver writing to dst.
//
// The Archiver owns dst: Archiver.Close closes it if it implements io.Closer.
func NewArchiver(dst io.Writer, kind Kind, optFns ...func(*Options)) (*Archiver, error) {
	opts := &Options{
		ZipMethod: zip.Deflate,
		ZipLevel:  defaultZipLevel,
		Readlink:  os.Readlink,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	a := &Archiver{kind: kind, dst: dst}

	if opts.Codec != nil {
		if kind == KindZip {
			return nil, fmt.Errorf("zip archives cannot be wrapped in %s", opts.Codec.Ext())
		}

		enc, err := opts.Codec.NewEncoder(dst)
		if err != nil {
			return nil, fmt.Errorf("create encoder error: %w", err)
		}
		a.enc = enc
	} else {
		a.enc = nopWriteCloser(dst)
	}

	switch kind {
	case KindTar:
		a.w = newTarEntryWriter(a.enc, opts)
	case KindZip:
		a.w = newZipEntryWriter(a.enc, opts)
	case KindAr:
		a.w = newArEntryWriter(a.enc)
	case KindSingleFile:
		a.w = &singleEntryWriter{w: a.enc}
	default:
		return nil, fmt.Errorf("unknown archiver kind %v", kind)
	}

	return a, nil
}

// Kind returns the container format being written.
func (a *Archiver) Kind() Kind {
	return a.kind
}

// CreateEntry finalizes the currently open entry if any, then starts a new entry at the given archive path.
//
// The returned io.WriteCloser receives the entry's content; closing it is a no-op since the entry is only finalized
// by the next CreateEntry or Close. Directories have no content and return a nil io.WriteCloser. Symlinks take their
// content from their target so anything written to them is discarded.
func (a *Archiver) CreateEntry(path string, attrs Attributes) (io.WriteCloser, error) {
	switch a.state {
	case stateClosed:
		return nil, ErrClosed
	case stateEntryOpen:
		a.state = stateNoEntry
		if err := a.w.closeEntry(); err != nil {
			return nil, fmt.Errorf("finalize %s entry error: %w", a.kind, err)
		}
	}

	name, trailing := cleanPath(filepath.ToSlash(path))
	if name == "" {
		return nil, unsupported(`invalid entry path "%s"`, path)
	}

	attrs.IsDir = attrs.IsDir || trailing
	if attrs.IsDir && attrs.IsSymlink {
		return nil, unsupported(`"%s" cannot be both a directory and a symlink`, name)
	}

	w, err := a.w.create(name, &attrs)
	if err != nil {
		return nil, err
	}

	a.seq++
	a.state = stateEntryOpen

	switch {
	case w == nil:
		return nil, nil
	case attrs.IsSymlink:
		w = io.Discard
	}

	return &entryStream{a: a, seq: a.seq, w: w}, nil
}

// SetComment sets the archive-level comment. Only zip archives have one; other formats ignore it.
func (a *Archiver) SetComment(comment string) error {
	if a.state == stateClosed {
		return ErrClosed
	}

	return a.w.setComment(comment)
}

// Close finalizes the open entry and the archive, then closes the codec's encoder and the destination.
//
// Subsequent calls return nil.
func (a *Archiver) Close() error {
	if a.state == stateClosed {
		return nil
	}

	var closeEntry func() error
	if a.state == stateEntryOpen {
		closeEntry = a.w.closeEntry
	}
	a.state = stateClosed

	var closeDst func() error
	if c, ok := a.dst.(io.Closer); ok {
		closeDst = c.Close
	}

	return chainCloser(closeEntry, a.w.close, a.enc.Close, closeDst)()
}

// entryStream is the writer handed out by CreateEntry.
type entryStream struct {
	a   *Archiver
	seq int
	w   io.Writer
}

func (s *entryStream) Write(p []byte) (int, error) {
	if s.a.state != stateEntryOpen || s.a.seq != s.seq {
		return 0, ErrEntryFinalized
	}

	return s.w.Write(p)
}

func (s *entryStream) Close() error {
	return nil
}
