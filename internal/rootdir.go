package internal

import (
	"strings"
)

// RootDir is the top-level directory that every entry of an archive lives under.
type RootDir string

// Trim removes the root directory from the given archive path.
func (r RootDir) Trim(path string) string {
	switch {
	case r == "":
		return path
	case path == string(r):
		return ""
	default:
		return strings.TrimPrefix(path, string(r)+"/")
	}
}

// NewRootDirFinder returns a function that can be passed the archive paths of all entries to compute their common root.
//
// The function returns the current root dir and a boolean indicating whether there is a common root so far. As soon as
// the returned boolean value is false, the search can stop since there is no common root and subsequent calls will
// keep returning `"", false`.
//
// Given these paths:
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The common root directory is `test`. Directory entries count as their own root: a lone "test" directory entry
// does not break the root, but a lone "a.txt" file does.
func NewRootDirFinder() func(path string, isDir bool) (rootDir RootDir, hasRoot bool) {
	noRoot, root := false, ""

	return func(path string, isDir bool) (RootDir, bool) {
		if noRoot {
			return "", false
		}

		paths := strings.SplitN(strings.ReplaceAll(path, `\`, "/"), "/", 2)
		if len(paths) == 1 && !isDir {
			// this is a file at top level so there is no root for sure.
			noRoot = true
			return "", false
		}

		switch root {
		case paths[0]:
		case "":
			root = paths[0]
		default:
			noRoot = true
			return "", false
		}

		return RootDir(root), true
	}
}
