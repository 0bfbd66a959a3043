package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

const (
	lfhSig      = 0x04034b50
	cdfhSig     = 0x02014b50
	eocdSig     = 0x06054b50
	eocd64Sig   = 0x06064b50
	digitalSig  = 0x05054b50
	ddSig       = 0x08074b50
	lfhLen      = 30
	flagEncrypt = 0x1
	flagDesc    = 0x8
	uint32max   = 1<<32 - 1
)

// zipStreamIterator reads a zip archive front to back without the central directory.
//
// Entries whose sizes are deferred to a data descriptor can only be read if they are deflated, since the end of the
// deflate stream is what locates the descriptor. Such entries report UnknownSize until their content has been read.
type zipStreamIterator struct {
	br   *bufio.Reader
	cur  *Record[*zip.FileHeader]
	body *zipStreamBody
	done bool
}

func newZipStreamIterator(src io.Reader) *zipStreamIterator {
	return &zipStreamIterator{br: bufio.NewReader(src)}
}

func (it *zipStreamIterator) Next() (*Record[*zip.FileHeader], error) {
	if err := it.skip(); err != nil {
		return nil, err
	}

	if it.done {
		return nil, io.EOF
	}

	sig, err := it.br.Peek(4)
	if err != nil {
		return nil, &HeaderError{Format: "zip", Err: truncated(err)}
	}

	switch binary.LittleEndian.Uint32(sig) {
	case lfhSig:
	case cdfhSig, eocdSig, eocd64Sig, digitalSig:
		it.done = true
		return nil, io.EOF
	default:
		return nil, &HeaderError{Format: "zip", Err: fmt.Errorf("unexpected signature 0x%x", sig)}
	}

	fh, x, err := unmarshalLocalFileHeader(it.br)
	if err != nil {
		return nil, err
	}

	e := zipEntry(fh, x)
	rec := &Record[*zip.FileHeader]{Entry: e, Handle: fh}

	if it.body, err = it.newBody(rec, x.zip64); err != nil {
		return nil, err
	}

	if rec.IsSymlink && rec.LinkTarget == "" && it.body.r != nil {
		data, err := io.ReadAll(io.LimitReader(it.body, maxLinkTarget))
		if err != nil {
			return nil, fmt.Errorf(`read zip symlink "%s" error: %w`, rec.Path, err)
		}
		rec.LinkTarget = string(data)
	}

	it.cur = rec
	return rec, nil
}

func (it *zipStreamIterator) Current() *Record[*zip.FileHeader] {
	return it.cur
}

func (it *zipStreamIterator) Content() (io.Reader, error) {
	switch {
	case it.cur == nil:
		return nil, fmt.Errorf("zip: no current entry")
	case it.cur.IsSymlink:
		return strings.NewReader(it.cur.LinkTarget), nil
	case it.body.r == nil:
		return nil, it.body.err
	}

	return it.body, nil
}

func (it *zipStreamIterator) Close() error {
	it.cur = nil
	it.body = nil
	it.done = true
	return nil
}

// skip consumes whatever is left of the current entry, including its data descriptor.
func (it *zipStreamIterator) skip() error {
	it.cur = nil
	if it.body == nil {
		return nil
	}

	b := it.body
	it.body = nil
	if _, err := io.Copy(io.Discard, b); err != nil {
		return err
	}

	return b.drain()
}

// unmarshalLocalFileHeader reads the 30-byte local file header, file name, and extra field.
func unmarshalLocalFileHeader(r io.Reader) (*zip.FileHeader, zipExtra, error) {
	var b [lfhLen]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, zipExtra{}, &HeaderError{Format: "zip", Err: truncated(err)}
	}

	data := &struct {
		Signature        uint32
		ReaderVersion    uint16
		Flags            uint16
		Method           uint16
		ModifiedTime     uint16
		ModifiedDate     uint16
		CRC32            uint32
		CompressedSize   uint32
		UncompressedSize uint32
		FileNameLength   uint16
		ExtraFieldLength uint16
	}{}
	if err := binary.Read(bytes.NewReader(b[:]), binary.LittleEndian, data); err != nil {
		return nil, zipExtra{}, &HeaderError{Format: "zip", Err: err}
	}

	nm := make([]byte, int(data.FileNameLength)+int(data.ExtraFieldLength))
	if _, err := io.ReadFull(r, nm); err != nil {
		return nil, zipExtra{}, &HeaderError{Format: "zip", Err: truncated(err)}
	}

	fh := &zip.FileHeader{
		Name:               string(nm[:data.FileNameLength]),
		Extra:              nm[data.FileNameLength:],
		ReaderVersion:      data.ReaderVersion,
		Flags:              data.Flags,
		Method:             data.Method,
		ModifiedTime:       data.ModifiedTime,
		ModifiedDate:       data.ModifiedDate,
		CRC32:              data.CRC32,
		CompressedSize:     data.CompressedSize,
		UncompressedSize:   data.UncompressedSize,
		CompressedSize64:   uint64(data.CompressedSize),
		UncompressedSize64: uint64(data.UncompressedSize),
		Modified:           msDosTimeToTime(data.ModifiedDate, data.ModifiedTime),
	}

	x := parseZipExtra(fh.Extra, data.UncompressedSize, data.CompressedSize)
	if x.zip64 {
		if data.UncompressedSize == 0xffffffff {
			fh.UncompressedSize64 = x.usize64
		}
		if data.CompressedSize == 0xffffffff {
			fh.CompressedSize64 = x.csize64
		}
	}
	if !x.mtime.IsZero() {
		fh.Modified = x.mtime
	}

	return fh, x, nil
}

// newBody sets up the reader over rec's content, positioned right after its local file header.
func (it *zipStreamIterator) newBody(rec *Record[*zip.FileHeader], zip64 bool) (*zipStreamBody, error) {
	fh := rec.Handle
	b := &zipStreamBody{
		rec:   rec,
		br:    it.br,
		hash:  crc32.NewIEEE(),
		desc:  fh.Flags&flagDesc != 0,
		zip64: zip64,
	}

	if b.desc {
		if fh.Method != zip.Deflate {
			return nil, unsupported(`zip entry "%s" defers its size to a data descriptor but is not deflated`, rec.Path)
		}

		rec.Size = UnknownSize
		rec.ExactSize = false
	} else {
		b.raw = io.LimitReader(it.br, int64(fh.CompressedSize64))
	}

	switch {
	case fh.Flags&flagEncrypt != 0:
		b.err = unsupported(`zip entry "%s" is encrypted`, rec.Path)
	case fh.Method == zip.Store:
		b.r = b.raw
	case fh.Method == zip.Deflate && b.desc:
		// byteCounter is an io.ByteReader so flate stops exactly at the end of the deflate stream.
		b.consumed = &byteCounter{br: it.br}
		b.r = flate.NewReader(b.consumed)
	case fh.Method == zip.Deflate:
		b.r = flate.NewReader(b.raw)
	default:
		b.err = unsupported(`zip entry "%s" uses compression method %d`, rec.Path, fh.Method)
	}

	return b, nil
}

// zipStreamBody decompresses one entry and verifies its CRC-32 and size once the content is exhausted.
type zipStreamBody struct {
	rec   *Record[*zip.FileHeader]
	br    *bufio.Reader
	raw   io.Reader
	r     io.Reader
	hash  hash.Hash32
	n     uint64
	desc  bool
	zip64 bool
	eof   bool
	err   error

	// consumed counts the compressed bytes of entries whose sizes are in the data descriptor.
	consumed *byteCounter
}

type byteCounter struct {
	br *bufio.Reader
	n  uint64
}

func (c *byteCounter) Read(p []byte) (int, error) {
	n, err := c.br.Read(p)
	c.n += uint64(n)
	return n, err
}

func (c *byteCounter) ReadByte() (byte, error) {
	v, err := c.br.ReadByte()
	if err == nil {
		c.n++
	}
	return v, err
}

func (b *zipStreamBody) Read(p []byte) (int, error) {
	if b.r == nil || b.eof {
		return 0, io.EOF
	}
	if b.err != nil {
		return 0, b.err
	}

	n, err := b.r.Read(p)
	b.hash.Write(p[:n])
	b.n += uint64(n)

	switch {
	case errors.Is(err, io.EOF):
		if err = b.complete(); err != nil {
			b.err = err
			return n, err
		}
		b.eof = true
		return n, io.EOF
	case err != nil:
		b.err = err
	}

	return n, err
}

// complete reads the data descriptor if there is one, then checks the content against the declared CRC-32 and size.
func (b *zipStreamBody) complete() error {
	fh := b.rec.Handle

	if b.desc {
		if err := b.readDescriptor(); err != nil {
			return err
		}
	} else if b.raw != nil {
		if _, err := io.Copy(io.Discard, b.raw); err != nil {
			return err
		}
	}

	if b.n != fh.UncompressedSize64 {
		return fmt.Errorf(`zip entry "%s" size mismatch: read %d bytes, expected %d: %w`, b.rec.Path, b.n, fh.UncompressedSize64, io.ErrUnexpectedEOF)
	}

	if (b.desc || fh.CRC32 != 0) && b.hash.Sum32() != fh.CRC32 {
		return fmt.Errorf(`zip entry "%s": %w`, b.rec.Path, zip.ErrChecksum)
	}

	return nil
}

// drain consumes the compressed bytes of entries whose content could not be read.
func (b *zipStreamBody) drain() error {
	if b.r != nil {
		return nil
	}

	if b.raw != nil {
		_, err := io.Copy(io.Discard, b.raw)
		return err
	}

	return nil
}

func (b *zipStreamBody) readDescriptor() error {
	fh := b.rec.Handle

	// writers such as archive/zip switch to the zip64 descriptor once either size overflows 32 bits, whether or not
	// the local header carries a zip64 extra field.
	zip64 := b.zip64 || b.n >= uint32max || (b.consumed != nil && b.consumed.n >= uint32max)

	n := 12
	if zip64 {
		n = 20
	}

	buf := make([]byte, n+4)
	if _, err := io.ReadFull(b.br, buf[:4]); err != nil {
		return &HeaderError{Format: "zip", Err: truncated(err)}
	}

	// the descriptor signature is optional.
	if binary.LittleEndian.Uint32(buf) == ddSig {
		if _, err := io.ReadFull(b.br, buf[4:]); err != nil {
			return &HeaderError{Format: "zip", Err: truncated(err)}
		}
		buf = buf[4:]
	} else if _, err := io.ReadFull(b.br, buf[4:n]); err != nil {
		return &HeaderError{Format: "zip", Err: truncated(err)}
	}

	fh.CRC32 = binary.LittleEndian.Uint32(buf)
	if zip64 {
		fh.CompressedSize64 = binary.LittleEndian.Uint64(buf[4:])
		fh.UncompressedSize64 = binary.LittleEndian.Uint64(buf[12:])
	} else {
		fh.CompressedSize64 = uint64(binary.LittleEndian.Uint32(buf[4:]))
		fh.UncompressedSize64 = uint64(binary.LittleEndian.Uint32(buf[8:]))
	}

	b.rec.Size = int64(fh.UncompressedSize64)
	b.rec.ExactSize = true
	return nil
}

// truncated converts a short read of a header into io.ErrUnexpectedEOF.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
