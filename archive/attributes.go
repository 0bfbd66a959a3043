package archive

import (
	"archive/tar"
	"io/fs"
	"time"
)

// Attributes describes a local file about to be added with Archiver.CreateEntry.
type Attributes struct {
	// Size of the content. UnknownSize is rejected by the formats that need the size up front (tar and ar).
	Size    int64
	ModTime time.Time
	IsDir   bool

	// IsSymlink marks symbolic links. The link target is read from LocalPath when the entry is created; LinkTarget
	// only serves entries that have no LocalPath.
	IsSymlink  bool
	LinkTarget string

	// Perm is padded with DefaultFilePermissions or DefaultDirectoryPermissions when written.
	Perm         PermissionBits
	Owner, Group string

	// LocalPath is the path of the file on the local filesystem.
	LocalPath string
}

// AttributesFromFileInfo builds Attributes from the result of os.Lstat.
//
// Owner and group names are looked up the same way tar.FileInfoHeader does, and are left empty on platforms that have
// no such concept.
func AttributesFromFileInfo(localPath string, fi fs.FileInfo) Attributes {
	mode := fi.Mode()
	a := Attributes{
		ModTime:   fi.ModTime(),
		IsDir:     mode.IsDir(),
		IsSymlink: mode&fs.ModeSymlink != 0,
		Perm:      FullPermissions(Permissions(mode.Perm())),
		LocalPath: localPath,
	}

	if mode.IsRegular() {
		a.Size = fi.Size()
	}

	if hdr, err := tar.FileInfoHeader(fi, ""); err == nil {
		a.Owner, a.Group = hdr.Uname, hdr.Gname
	}

	return a
}

// linkTarget resolves the target of a symlink entry, preferring the live filesystem over LinkTarget.
func (a *Attributes) linkTarget(readlink func(string) (string, error)) (string, error) {
	if a.LocalPath == "" {
		if a.LinkTarget != "" {
			return a.LinkTarget, nil
		}

		return "", &SymlinkError{Path: a.LocalPath, Err: fs.ErrInvalid}
	}

	target, err := readlink(a.LocalPath)
	if err != nil {
		return "", &SymlinkError{Path: a.LocalPath, Err: err}
	}

	return target, nil
}
