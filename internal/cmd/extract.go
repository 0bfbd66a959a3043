package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arcs/internal"
	"github.com/nguyengg/arcs/internal/extract"
)

type Extract struct {
	Directory  flags.Filename `short:"C" long:"directory" description:"extract into this existing directory instead of a new one named after the archive"`
	NoProgress bool           `long:"no-progress" description:"do not show progress bars"`
	Args       struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the local files to be extracted" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) (err error) {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, string(file)))
		logger := internal.MustLogger(ctx)
		logger.Printf("start extracting")

		if err = c.extract(ctx, string(file)); err == nil {
			logger.Printf("done extracting")
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		logger.Printf("extract error: %v", err)
	}

	log.Printf("successfully extracted %d/%d files", success, n)
	return nil
}

func (c *Extract) extract(ctx context.Context, name string) error {
	a, err := openArchive(ctx, name)
	if err != nil {
		return err
	}

	x := &extract.Extractor{Dir: string(c.Directory), ProgressBar: !c.NoProgress}

	if x.Dir == "" {
		// unwrap the root directory if there is one, else create a new directory named after the archive.
		if x.Root, err = extract.FindRoot(ctx, a); err != nil {
			return fmt.Errorf("find root directory error: %w", err)
		}

		stem := string(x.Root)
		if stem == "" {
			stem, _ = internal.StemAndExt(filepath.Base(name))
		}

		if x.Dir, err = internal.MkExclDir(".", stem, 0o755); err != nil {
			return fmt.Errorf("create output directory error: %w", err)
		}
	}

	count, err := x.Extract(ctx, a)
	if err != nil {
		return err
	}

	internal.MustLogger(ctx).Printf(`extracted %d entries to "%s"`, count, x.Dir)
	return nil
}
