package archive

import (
	"io"
)

// Format decodes one archive format whose per-entry handle is H.
type Format[H any] interface {
	// Name identifies the format, such as "tar.gz" or "zip".
	Name() string
	// NewIterator starts decoding the archive from src, which must be positioned at byte zero.
	//
	// The iterator does not own src: closing the iterator releases decoders wrapping src but leaves src open.
	NewIterator(src io.Reader) (Iterator[H], error)
}

// ContentOpener is implemented by formats whose entries' content does not live in the archive stream.
//
// When the Format of a Reader implements ContentOpener, both the fast path and the fallback scan are bypassed.
type ContentOpener[H any] interface {
	OpenContent(rec *Record[H]) (io.ReadCloser, error)
}

// Iterator produces the records of one pass over an archive.
//
// Iterators are forward-only and cannot be restarted; a new pass requires a new iterator over a freshly opened stream.
// They are not safe for concurrent use.
type Iterator[H any] interface {
	// Next decodes the next header, skipping whatever was left unread of the current entry's data. It returns io.EOF
	// once the archive is exhausted.
	Next() (*Record[H], error)

	// Current returns the record most recently returned by Next, or nil.
	//
	// The pointer is the one Next returned. Reader.ContentStream compares pointers to decide whether the iterator is
	// positioned at a record, so a record copied by value never takes the fast path.
	Current() *Record[H]

	// Content returns a reader over the current record's data. The reader is only valid until the next call to Next
	// or Close.
	Content() (io.Reader, error)

	// Close releases the iterator's decoders.
	Close() error
}
