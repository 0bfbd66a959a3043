package archive

import (
	"encoding/binary"
	"hash/crc32"
	"time"
)

// Header IDs of the zip extra fields understood here.
const (
	zip64ExtraID   = 0x0001
	extTimeExtraID = 0x5455
	asiExtraID     = 0x756e
)

// Unix file type bits as stored in the ASi extra field and in the high half of zip's external attributes.
const (
	unixTypeMask    = 0o170000
	unixTypeDir     = 0o040000
	unixTypeRegular = 0o100000
	unixTypeSymlink = 0o120000
)

// asiExtra is the ASi Unix extra field written by Info-ZIP's predecessors and commons-compress.
//
// Layout after the 4-byte field header: CRC-32 of the rest, mode uint16, link length uint32, uid uint16, gid uint16,
// then the link target.
type asiExtra struct {
	Mode     uint16
	UID, GID uint16
	Link     string
}

func (a *asiExtra) marshal() []byte {
	body := make([]byte, 10+len(a.Link))
	binary.LittleEndian.PutUint16(body[0:], a.Mode)
	binary.LittleEndian.PutUint32(body[2:], uint32(len(a.Link)))
	binary.LittleEndian.PutUint16(body[6:], a.UID)
	binary.LittleEndian.PutUint16(body[8:], a.GID)
	copy(body[10:], a.Link)

	b := make([]byte, 4+4+len(body))
	binary.LittleEndian.PutUint16(b[0:], asiExtraID)
	binary.LittleEndian.PutUint16(b[2:], uint16(4+len(body)))
	binary.LittleEndian.PutUint32(b[4:], crc32.ChecksumIEEE(body))
	copy(b[8:], body)
	return b
}

func unmarshalASi(data []byte) (*asiExtra, bool) {
	if len(data) < 14 || crc32.ChecksumIEEE(data[4:]) != binary.LittleEndian.Uint32(data) {
		return nil, false
	}

	a := &asiExtra{
		Mode: binary.LittleEndian.Uint16(data[4:]),
		UID:  binary.LittleEndian.Uint16(data[10:]),
		GID:  binary.LittleEndian.Uint16(data[12:]),
	}

	n := binary.LittleEndian.Uint32(data[6:])
	if uint64(n) > uint64(len(data)-14) {
		return nil, false
	}
	a.Link = string(data[14 : 14+n])
	return a, true
}

// zipExtra is what the extra field of a local or central header says about an entry.
type zipExtra struct {
	asi     *asiExtra
	mtime   time.Time
	zip64   bool
	usize64 uint64
	csize64 uint64
}

// parseZipExtra decodes the known fields of the extra block b, ignoring unknown and truncated ones.
//
// usize and csize are the 32-bit sizes from the header, which tell which zip64 fields are present.
func parseZipExtra(b []byte, usize, csize uint32) (x zipExtra) {
	for len(b) >= 4 {
		id := binary.LittleEndian.Uint16(b)
		n := int(binary.LittleEndian.Uint16(b[2:]))
		if len(b) < 4+n {
			return
		}
		data := b[4 : 4+n]
		b = b[4+n:]

		switch id {
		case asiExtraID:
			if a, ok := unmarshalASi(data); ok {
				x.asi = a
			}

		case extTimeExtraID:
			if len(data) >= 5 && data[0]&1 != 0 {
				x.mtime = time.Unix(int64(int32(binary.LittleEndian.Uint32(data[1:]))), 0).UTC()
			}

		case zip64ExtraID:
			x.zip64 = true
			if usize == 0xffffffff && len(data) >= 8 {
				x.usize64 = binary.LittleEndian.Uint64(data)
				data = data[8:]
			}
			if csize == 0xffffffff && len(data) >= 8 {
				x.csize64 = binary.LittleEndian.Uint64(data)
			}
		}
	}

	return
}

// msDosTimeToTime converts an MS-DOS date and time into a time.Time.
//
// The resolution is 2s. See: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}
