package cmd

import (
	"context"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arcs/archive"
	"github.com/nguyengg/arcs/internal"
	"github.com/opencontainers/go-digest"
)

type List struct {
	Long   bool `short:"l" long:"long" description:"show mode, size, and modification time of each entry"`
	Digest bool `long:"digest" description:"also show the sha256 digest of each file's content"`
	Args   struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the archives to be listed" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *List) Execute(args []string) (err error) {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if c.out == nil {
		c.out = os.Stdout
	}

	success := 0
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, string(file)))

		if err = c.list(ctx, string(file)); err == nil {
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		internal.MustLogger(ctx).Printf("list error: %v", err)
	}

	log.Printf("successfully listed %d/%d files", success, n)
	return nil
}

func (c *List) list(ctx context.Context, name string) error {
	a, err := openArchive(ctx, name)
	if err != nil {
		return err
	}

	return a.Walk(func(e *archive.Entry, open func() (io.ReadCloser, error)) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var sb strings.Builder
		if c.Long {
			size := "-"
			if e.Size != archive.UnknownSize {
				size = humanize.IBytes(uint64(e.Size))
			}

			_, _ = fmt.Fprintf(&sb, "%s %-8s %-8s %10s %s ", e.Mode(), e.Owner, e.Group, size, e.ModTime.Local().Format("2006-01-02 15:04:05"))
		}

		if c.Digest {
			d := strings.Repeat(" ", 71)
			if !e.IsDir && !e.IsSymlink {
				if d, err = contentDigest(open); err != nil {
					return fmt.Errorf(`compute digest of "%s" error: %w`, e.Path, err)
				}
			}

			sb.WriteString(d + " ")
		}

		sb.WriteString(e.Path)
		switch {
		case e.IsDir:
			sb.WriteString("/")
		case e.IsSymlink:
			sb.WriteString(" -> " + e.LinkTarget)
		}

		_, err = fmt.Fprintln(c.out, sb.String())
		return err
	})
}

func contentDigest(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	d, err := digest.SHA256.FromReader(rc)
	if err != nil {
		return "", err
	}

	return d.String(), nil
}
