package archive

import (
	"io/fs"
	"path"
	"strings"
	"time"
)

// UnknownSize is the Entry.Size of entries whose size the format does not declare up front.
const UnknownSize int64 = -1

const (
	// DefaultFilePermissions pads the permissions of files for formats that carry no or partial Unix permissions.
	DefaultFilePermissions Permissions = 0o644
	// DefaultDirectoryPermissions pads the permissions of directories for formats that carry no or partial Unix
	// permissions.
	DefaultDirectoryPermissions Permissions = 0o755
)

// Entry is the normalized description of one file, directory, or symlink in an archive.
type Entry struct {
	// Path is archive-relative with forward slashes, no leading slash, and no trailing slash even for directories.
	Path string
	// IsDir is true for directories.
	IsDir bool
	// ModTime is the last modification time, at the format's native resolution.
	ModTime time.Time
	// Size is the length of the entry's content, or UnknownSize.
	Size int64
	// ExactSize is true if Size is the exact size declared by the format rather than an estimate.
	ExactSize bool
	// Perm is always padded (see PadPermissions) so every rwx bit is meaningful.
	Perm PermissionBits
	// Owner and Group are empty if the format does not record them.
	Owner, Group string
	// IsSymlink is true for symbolic links, in which case LinkTarget is the link's target.
	IsSymlink  bool
	LinkTarget string
}

// Name returns the last element of Path.
func (e *Entry) Name() string {
	return path.Base(e.Path)
}

// Mode returns the fs.FileMode combining the type bits and permissions.
func (e *Entry) Mode() fs.FileMode {
	mode := e.Perm.FileMode()
	switch {
	case e.IsDir:
		mode |= fs.ModeDir
	case e.IsSymlink:
		mode |= fs.ModeSymlink
	}

	return mode
}

// Record pairs an Entry with the format-specific handle H that its iterator needs to find the entry's content again.
//
// H is never interpreted outside the format that produced it.
type Record[H any] struct {
	Entry
	Handle H
}

// Permissions is a set of Unix rwx triads (user, group, other), 0o777 at most.
type Permissions uint16

// FileMode converts to the permission part of an fs.FileMode.
func (p Permissions) FileMode() fs.FileMode {
	return fs.FileMode(p & 0o777)
}

// PermissionBits is a Permissions value together with the mask of the bits that are actually known.
//
// Formats such as ar and lst carry no permissions (Mask is 0), zip archives created on Windows carry none, and tar
// carries all of them (Mask is 0o777).
type PermissionBits struct {
	Bits Permissions
	Mask Permissions
}

// FullPermissions returns the PermissionBits for a fully known value.
func FullPermissions(p Permissions) PermissionBits {
	return PermissionBits{Bits: p & 0o777, Mask: 0o777}
}

// FileMode converts to the permission part of an fs.FileMode.
func (p PermissionBits) FileMode() fs.FileMode {
	return (p.Bits & p.Mask).FileMode()
}

// PadPermissions fills every bit of p that is not known with the corresponding bit of def.
//
// The result always has a full mask.
func PadPermissions(p PermissionBits, def Permissions) PermissionBits {
	return FullPermissions(p.Bits&p.Mask | def&^p.Mask)
}

// defaultPermissions returns DefaultDirectoryPermissions or DefaultFilePermissions.
func defaultPermissions(isDir bool) Permissions {
	if isDir {
		return DefaultDirectoryPermissions
	}

	return DefaultFilePermissions
}

// cleanPath normalizes an archive path: no "./" or "/" prefix, no trailing slash.
//
// The second return value is true if the original path ended with a slash, which some formats use to mark
// directories.
func cleanPath(name string) (string, bool) {
	trailing := strings.HasSuffix(name, "/")

	for {
		switch {
		case strings.HasPrefix(name, "./"):
			name = name[2:]
		case strings.HasPrefix(name, "/"):
			name = name[1:]
		default:
			return strings.TrimRight(name, "/"), trailing
		}
	}
}
