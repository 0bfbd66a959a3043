package archive

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/nguyengg/arcs/codec"
)

// Open returns the Archive read from src, choosing the format from the archive's file name.
//
// Recognised extensions are .tar, .tar.gz, .tgz, .tar.zst, .tzst, .tar.xz, .txz, .tar.bz2, .tbz2, .tbz, .zip, .jar,
// .ar, .a, .deb, .lst, and the read-only .7z and .rar. ErrUnknownFormat is returned for anything else.
func Open(src Source, name string) (Archive, error) {
	inner, c, _ := codec.SplitExt(path.Base(name))

	switch ext := strings.ToLower(path.Ext(inner)); {
	case ext == ".tar":
		return NewReader(src, TarFormat{Codec: c}), nil
	case ext == ".ar" || ext == ".a" || ext == ".deb":
		return NewReader(src, ArFormat{Codec: c}), nil
	case c != nil:
	case ext == ".zip" || ext == ".jar":
		return NewReader(src, ZipFormat{}), nil
	case ext == ".lst":
		return NewReader(src, LstFormat{}), nil
	case ext == ".7z":
		return NewReader(src, SevenZipFormat{}), nil
	case ext == ".rar":
		return NewReader(src, RarFormat{}), nil
	}

	return nil, fmt.Errorf(`%w: "%s"`, ErrUnknownFormat, name)
}

// OpenFile is a convenient wrapper around Open for local files.
func OpenFile(name string) (Archive, error) {
	return Open(FileSource(name), name)
}

// Create returns an Archiver writing to dst, choosing the kind and codec from the archive's file name.
//
// Recognised extensions are those of Open minus .jar, .deb, .lst, .7z, and .rar, plus the bare codec extensions .gz,
// .zst, .xz, and .bz2 which produce single-file archives. The given optFns are applied after the name-derived options
// so they can override the codec.
func Create(dst io.Writer, name string, optFns ...func(*Options)) (*Archiver, error) {
	kind, c, err := KindOf(name)
	if err != nil {
		return nil, err
	}

	return NewArchiver(dst, kind, append([]func(*Options){func(opts *Options) {
		opts.Codec = c
	}}, optFns...)...)
}

// KindOf returns the Kind and codec to write an archive with the given file name.
func KindOf(name string) (Kind, codec.Codec, error) {
	inner, c, _ := codec.SplitExt(path.Base(name))

	switch ext := strings.ToLower(path.Ext(inner)); {
	case ext == ".tar":
		return KindTar, c, nil
	case ext == ".ar" || ext == ".a":
		return KindAr, c, nil
	case c != nil:
		return KindSingleFile, c, nil
	case ext == ".zip":
		return KindZip, nil, nil
	}

	return 0, nil, fmt.Errorf(`%w: "%s"`, ErrUnknownFormat, name)
}
