// Command pcs-import imports PDF bank and broker statements into portfolios.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/pcs-import/cmd"
	"github.com/etnz/pcs-import/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	completion().Complete("pcs-import")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	id := predict.Nothing
	topics, _ := docs.GetAllTopics()
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"db":     predict.Files("*.db"),
			"v":      predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"import": {
				Flags: map[string]complete.Predictor{
					"delivery": predict.Nothing,
					"assisted": predict.Nothing,
					"consent":  predict.Nothing,
				},
				Args: predict.Files("*.pdf"),
			},
			"portfolios":    {},
			"accounts":      {},
			"add-portfolio": {Args: id},
			"add-account": {
				Flags: map[string]complete.Predictor{"c": predict.Set{"EUR", "USD", "GBP", "CHF"}},
				Args:  id,
			},
			"retire": {Args: predict.Set{"portfolio", "account"}},
			"topic":  {Flags: map[string]complete.Predictor{"all": predict.Nothing}, Args: predict.Set(topics)},
			"help":   {},
		},
	}
}
