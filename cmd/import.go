package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/modal"
	"github.com/etnz/pcs-import/renderer"
	"github.com/google/subcommands"
)

type importCmd struct {
	delivery bool
	assisted bool
	consent  bool
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string {
	return "import transactions from PDF bank and broker statements"
}
func (*importCmd) Usage() string {
	return `pcs-import import [-delivery] [-assisted [-consent]] [file.pdf...]

  Opens the import window. The given files are parsed right away, more can be
  added with the 'add' command. Type 'help' in the window for the commands,
  'esc' or Ctrl-C to close it and discard everything not imported.

`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.delivery, "delivery", false, "Treat parsed buys as deliveries into the depot (TransferIn)")
	f.BoolVar(&c.assisted, "assisted", false, "Extract documents with the configured AI provider")
	f.BoolVar(&c.consent, "consent", false, "Accept that documents, including account numbers and personal data, are sent to the AI provider")
}

const prompt = "import> "

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, st, err := OpenStore()
	if err != nil {
		return fail("%v", err)
	}
	defer st.Close()
	if c.delivery {
		cfg.DeliveryMode = true
	}

	in := bufio.NewReader(os.Stdin)
	picker := &linePicker{r: in, w: os.Stdout}
	b := NewBackend(cfg, st)
	w := importer.New(b, picker,
		importer.WithSettings(cfg.Settings()),
		importer.WithQueue(cfg.Queue()),
		importer.WithProgress(func(p importer.Progress) {
			faint.Fprintln(os.Stderr, renderer.RenderProgress(p))
		}),
		importer.WithLogger(logger()),
	)
	defer w.Close()

	s := &session{ctx: ctx, wizard: w, picker: picker, catalog: b, provider: cfg.Provider(), render: renderMarkdown}
	shell := modal.New("Import PDF statements", s, w.Close)
	shell.Open()

	if c.consent && !c.assisted {
		return fail("-consent requires -assisted")
	}
	if c.assisted {
		s.status, s.err = s.exec("assist", []string{"on"})
	}
	if c.consent && s.err == nil {
		cfg, _ := w.AssistedExtraction()
		warning.Println(cfg.Disclosure())
		s.status, s.err = s.exec("consent", []string{"yes"})
	}
	if f.NArg() > 0 && s.err == nil {
		s.run(ctx, shell, func() { s.status, s.err = s.exec("add", f.Args()) })
	}

	var outcome *importer.Outcome
	for shell.IsOpen() {
		if o, ok := w.Outcome(); ok {
			outcome = &o
		}
		shell.Render(os.Stdout)
		fmt.Print(prompt)
		line, err := in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" {
				fmt.Println()
				shell.Close()
				break
			}
			if !errors.Is(err, io.EOF) {
				shell.Close()
				return fail("cannot read input: %v", err)
			}
		}
		s.run(ctx, shell, func() { shell.HandleKey(modal.ParseKey(line)) })
	}

	if outcome != nil && !outcome.Success() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// run runs op with a context cancelled by Ctrl-C. An interrupted operation
// closes the shell.
func (s *session) run(ctx context.Context, shell *modal.Shell, op func()) {
	opCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	s.ctx = opCtx
	op()
	s.ctx = ctx
	if opCtx.Err() != nil && ctx.Err() == nil {
		shell.Close()
		warning.Fprintln(os.Stderr, "Interrupted, the import window was closed.")
	}
}
