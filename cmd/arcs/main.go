package main

import (
	"context"
	"errors"
	"log"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arcs/internal/cmd"
	"github.com/nguyengg/arcs/internal/config"
)

func main() {
	p, err := cmd.NewParser()
	if err != nil {
		log.Fatalf("create parser error: %v", err)
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		name, err := config.Load(context.Background())
		if err != nil {
			log.Printf("load config error: %v", err)
		} else if name != "" {
			log.Printf(`loaded config from "%s"`, name)
		}

		return command.Execute(args)
	}

	_, err = p.Parse()
	exit(err)
}

// exitCode is 0 for success and explicit help, 2 for command line usage errors, and 1 for everything else.
func exitCode(err error) int {
	var flagsErr *flags.Error
	switch {
	case err == nil || flags.WroteHelp(err):
		return 0
	case errors.As(err, &flagsErr):
		return 2
	default:
		return 1
	}
}
