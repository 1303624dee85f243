// Package cmd implements the pcs-import command line application.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/pcs-import/backend"
	"github.com/etnz/pcs-import/config"
	"github.com/etnz/pcs-import/store"
	"github.com/fatih/color"
	"github.com/google/subcommands"
)

// Environment variables set by pcs when it runs pcs-import as an extension.
const (
	EnvConfig  = "PCS_IMPORT_CONFIG"
	EnvVerbose = "PCS_VERBOSE"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "import")

	c.Register(&portfoliosCmd{}, "targets")
	c.Register(&accountsCmd{}, "targets")
	c.Register(&addPortfolioCmd{}, "targets")
	c.Register(&addAccountCmd{}, "targets")
	c.Register(&retireCmd{}, "targets")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", defaultConfig(), "Path to the configuration file (env "+EnvConfig+")")
var dbPath = flag.String("db", "", "Path to the sqlite database, overrides the configuration")
var Verbose = flag.Bool("v", verbose(), "Log what the importer does (env "+EnvVerbose+")")

func defaultConfig() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return "pcs-import.yaml"
}

func verbose() bool {
	v, _ := strconv.ParseBool(os.Getenv(EnvVerbose))
	return v
}

// logger is the logger of the libraries: silent unless verbose.
func logger() *log.Logger {
	if *Verbose {
		return log.New(os.Stderr, "pcs-import: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// LoadConfig loads the configuration, applying the command line overrides.
func LoadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	return cfg, nil
}

// OpenStore opens the database of the configuration.
func OpenStore() (config.Config, *store.Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return cfg, nil, err
	}
	st, err := store.Open(cfg.Database)
	return cfg, st, err
}

// NewBackend returns the local backend over st.
func NewBackend(cfg config.Config, st *store.Store) *backend.Local {
	return backend.New(st,
		backend.WithRequestsPerMinute(cfg.Assist.RequestsPerMinute),
		backend.WithLogger(logger()),
	)
}

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed, color.Bold)
	faint   = color.New(color.Faint)
)

// fail prints an error and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	failure.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// renderMarkdown renders md for the terminal. Plain markdown is returned
// when stdout is not a terminal.
func renderMarkdown(md string) (string, error) {
	if color.NoColor {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// printMarkdown prints md to stdout.
func printMarkdown(md string) {
	out, err := renderMarkdown(md)
	if err != nil {
		out = md
	}
	fmt.Print(out)
}
