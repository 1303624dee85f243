package cmd

import (
	"context"
	"flag"

	"github.com/etnz/pcs-import/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	all bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the pcs-import guides" }
func (*topicCmd) Usage() string {
	return `pcs-import topic [-all] [topic...]

  Without topic, prints the overview and the list of topics.
  Topics: import, targets, assisted, formats, config.

`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Print every topic")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var (
		md  string
		err error
	)
	switch {
	case c.all:
		md, err = docs.GetTopic("*")
	case f.NArg() > 0:
		md, err = docs.GetTopics(f.Args()...)
	default:
		md, err = overview()
	}
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}

// overview is the readme followed by the index of the topics.
func overview() (string, error) {
	readme, err := docs.GetTopic("readme")
	if err != nil {
		return "", err
	}
	index, err := docs.Index()
	if err != nil {
		return "", err
	}
	return readme + "\n" + index, nil
}
