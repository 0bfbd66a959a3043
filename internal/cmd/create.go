package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arcs/archive"
	"github.com/nguyengg/arcs/internal"
	"github.com/nguyengg/arcs/internal/compress"
	"github.com/nguyengg/arcs/internal/config"
)

type Create struct {
	Output     flags.Filename `short:"o" long:"output" description:"the archive to create; its extension decides the format" required:"yes"`
	Comment    string         `long:"comment" description:"archive comment, zip only"`
	LongNames  string         `long:"long-names" choice:"gnu" choice:"fail" description:"how tar archives deal with long names (default from config, else gnu)"`
	ZipLevel   int            `long:"zip-level" description:"flate level of zip entries (default from config, else best compression)"`
	NoProgress bool           `long:"no-progress" description:"do not show progress bars"`
	Args       struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the files/directories to be archived" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Create) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	ctx = internal.WithPrefixLogger(ctx, internal.Prefix(0, 1, string(c.Output)))
	logger := internal.MustLogger(ctx)
	logger.Printf("start creating")

	name := string(c.Output)
	dst, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return fmt.Errorf("create output file error: %w", err)
	}

	sizer := &internal.Sizer{}
	n, err := c.create(ctx, io.MultiWriter(dst, sizer))
	if err == nil {
		err = dst.Close()
	}
	if err != nil {
		_, _ = dst.Close(), os.Remove(name)
		return err
	}

	logger.Printf("done creating with %d entries (%s)", n, humanize.IBytes(uint64(sizer.Size)))
	return nil
}

func (c *Create) create(ctx context.Context, dst io.Writer) (int, error) {
	files := make([]string, len(c.Args.Files))
	for i, f := range c.Args.Files {
		files[i] = string(f)
	}

	if strings.EqualFold(filepath.Ext(string(c.Output)), ".lst") {
		return compress.Manifest(ctx, dst, files)
	}

	a, err := archive.Create(dst, string(c.Output), c.options(config.ForCreate()))
	if err != nil {
		return 0, err
	}

	n, err := compress.Add(ctx, a, files, func(opts *compress.Options) {
		opts.ProgressBar = !c.NoProgress
	})
	if err != nil {
		_ = a.Close()
		return n, err
	}

	if c.Comment != "" {
		if err = a.SetComment(c.Comment); err != nil {
			_ = a.Close()
			return n, err
		}
	}

	return n, a.Close()
}

// options merges the command line flags over the configuration.
func (c *Create) options(cfg config.CreateConfig) func(*archive.Options) {
	if c.LongNames == "" {
		c.LongNames = cfg.LongNames
	}
	if c.ZipLevel == 0 {
		c.ZipLevel = cfg.ZipLevel
	}
	if c.Comment == "" && archiveKind(string(c.Output)) == archive.KindZip {
		c.Comment = cfg.Comment
	}

	return func(opts *archive.Options) {
		if c.LongNames == "fail" {
			opts.LongNames = archive.LongNamesFail
		}
		if c.ZipLevel != 0 {
			opts.ZipLevel = c.ZipLevel
		}
	}
}

func archiveKind(name string) archive.Kind {
	kind, _, err := archive.KindOf(name)
	if err != nil {
		return -1
	}

	return kind
}
