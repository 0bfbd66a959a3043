package cmd

import (
	"github.com/jessevdk/go-flags"
)

type Arcs struct {
	List    List    `command:"list" alias:"ls" description:"list the entries of archives"`
	Extract Extract `command:"extract" alias:"x" description:"extract archives"`
	Create  Create  `command:"create" alias:"c" description:"create an archive from files and directories"`
	Cat     Cat     `command:"cat" description:"write the content of one archive entry to standard output"`
}

func NewParser() (*flags.Parser, error) {
	opts := &Arcs{}

	p := flags.NewNamedParser("arcs", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	return p, nil
}
