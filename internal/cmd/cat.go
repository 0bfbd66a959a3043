package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arcs/internal"
)

type Cat struct {
	Args struct {
		File  flags.Filename `positional-arg-name:"file" description:"the archive" required:"yes"`
		Entry string         `positional-arg-name:"entry" description:"the path of the entry in the archive" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *Cat) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if c.out == nil {
		c.out = os.Stdout
	}

	a, err := openArchive(ctx, string(c.Args.File))
	if err != nil {
		return err
	}

	rc, err := a.Open(c.Args.Entry)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err = internal.CopyBufferWithContext(ctx, c.out, rc, nil); err != nil {
		return fmt.Errorf(`read entry "%s" error: %w`, c.Args.Entry, err)
	}

	return nil
}
