package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/nguyengg/arcs/archive"
	"github.com/nguyengg/arcs/internal/config"
)

// openArchive opens the named local archive.
//
// The format is chosen from the file's extension. Files with a missing or misleading extension are identified by their
// content instead, and lst manifests have their base folder replaced if the configuration says so.
func openArchive(ctx context.Context, name string) (archive.Archive, error) {
	if strings.EqualFold(filepath.Ext(name), ".lst") {
		return archive.NewReader(archive.FileSource(name), archive.LstFormat{BaseFolder: config.ForExtract().LstBase}), nil
	}

	a, err := archive.OpenFile(name)
	if err == nil || !errors.Is(err, archive.ErrUnknownFormat) {
		return a, err
	}

	ext, err := identify(ctx, name)
	if err != nil {
		return nil, err
	}

	return archive.Open(archive.FileSource(name), "archive"+ext)
}

// identify returns the extension that matches the content of the named file.
func identify(ctx context.Context, name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", fmt.Errorf(`open file "%s" error: %w`, name, err)
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, "", f)
	switch {
	case errors.Is(err, archives.NoMatch):
		return "", fmt.Errorf(`%w: "%s"`, archive.ErrUnknownFormat, name)
	case err != nil:
		return "", fmt.Errorf(`identify format of "%s" error: %w`, name, err)
	}

	return format.Extension(), nil
}
