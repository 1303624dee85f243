package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/modal"
	"github.com/etnz/pcs-import/renderer"
	"github.com/shopspring/decimal"
)

// linePicker picks files from the command line, then by asking for glob
// patterns.
type linePicker struct {
	pending []string
	r       *bufio.Reader
	w       io.Writer
}

func (p *linePicker) PickFiles(ctx context.Context) ([]string, error) {
	patterns := p.pending
	p.pending = nil
	if len(patterns) == 0 {
		fmt.Fprint(p.w, "PDF files (glob patterns, empty line to cancel): ")
		line, err := p.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		patterns = strings.Fields(line)
	}
	return expand(patterns)
}

// expand resolves glob patterns. A pattern matching nothing is kept as is so
// the missing file is reported by the parser.
func expand(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			matches = []string{p}
		}
		files = append(files, matches...)
	}
	return files, nil
}

const sessionHelp = `Commands:

  add [file.pdf...]          load more documents
  type <n|all> <kind>        change the type of transaction n, or of all
  untype <n>                 restore the parsed type of transaction n
  fee <n> <amount>           change the fee of transaction n
  unfee <n>                  restore the parsed fee of transaction n
  portfolio <doc|all> <id>   import document doc, or all, into a portfolio
  account <id>               book the cash flows against an account
  targets                    reload and list portfolios and accounts
  autocreate on|off          create unknown securities
  skipdup on|off             skip transactions already imported
  assist on|off [model]      extract documents with the AI provider
  consent yes|no             allow documents to be sent to the AI provider
  commit                     import everything
  reset                      start over
  esc                        close the import window

Kinds: %s
Statement formats: %s
`

// catalog is the part of the backend the session reaches past the wizard.
type catalog interface {
	// Invalidate forgets the cached portfolios and accounts.
	Invalidate()
	Parsers() []string
}

// session is the content of the import window. Every typed line is a
// command applied to the wizard.
type session struct {
	ctx      context.Context
	wizard   *importer.Wizard
	picker   *linePicker
	catalog  catalog
	provider importer.ProviderConfig
	// render turns markdown into terminal output.
	render func(md string) (string, error)

	status string
	err    error
	help   bool
	// disclosed is set once the data-sharing notice of the provider was shown.
	disclosed bool
}

var _ modal.KeyHandler = (*session)(nil)

// Render writes the view of the current step followed by the result of the
// last command.
func (s *session) Render(w io.Writer) error {
	md, err := s.markdown()
	if err != nil {
		return err
	}
	out, err := s.render(md)
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)
	if s.help {
		names := make([]string, 0, len(importer.Kinds()))
		for _, k := range importer.Kinds() {
			names = append(names, k.String())
		}
		fmt.Fprintf(w, sessionHelp, strings.Join(names, ", "), strings.Join(s.catalog.Parsers(), ", "))
	}
	switch {
	case s.err != nil:
		failure.Fprintf(w, "Error: %v\n", s.err)
	case s.status != "":
		success.Fprintln(w, s.status)
	}
	return nil
}

func (s *session) markdown() (string, error) {
	switch s.wizard.Step() {
	case importer.StepSelect:
		md := "# Import PDF statements\n\nNo document loaded. Type `add <file.pdf>...` to load documents, or `help`.\n"
		if cfg, ok := s.wizard.AssistedExtraction(); ok && !cfg.Consent {
			md += "\n> " + cfg.Disclosure() + "\n"
		}
		return md, nil
	case importer.StepImporting:
		return "# Importing\n", nil
	case importer.StepDone:
		o, _ := s.wizard.Outcome()
		return renderer.RenderOutcome(o) + "\nType `reset` to import more documents.\n", nil
	}
	portfolios, accounts, err := s.wizard.Targets(s.ctx)
	if err != nil {
		return "", err
	}
	return renderer.RenderPreview(renderer.NewPreview(s.wizard, portfolios, accounts)), nil
}

// HandleKey runs the command typed as k.
func (s *session) HandleKey(k modal.Key) bool {
	s.status, s.err, s.help = "", nil, false
	if k == modal.KeyEnter {
		return true
	}
	args := strings.Fields(string(k))
	s.status, s.err = s.exec(args[0], args[1:])
	return true
}

func (s *session) exec(name string, args []string) (string, error) {
	w := s.wizard
	name = strings.ToLower(name)
	switch name {
	case "help", "?":
		s.help = true
		return "", nil

	case "add":
		s.picker.pending = args
		if err := w.SelectFiles(s.ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d document(s) loaded", len(w.Documents())), nil

	case "type":
		if len(args) != 2 {
			return "", errors.New("usage: type <n|all> <kind>")
		}
		k, err := importer.ParseKind(args[1])
		if err != nil {
			return "", err
		}
		if args[0] == "all" {
			return "all types changed to " + k.String(), w.SetAllTypes(k)
		}
		i, err := index(args[0])
		if err != nil {
			return "", err
		}
		return "", w.SetType(i, k)

	case "untype":
		i, err := oneIndex(args)
		if err != nil {
			return "", err
		}
		return "", w.ClearType(i)

	case "fee":
		if len(args) != 2 {
			return "", errors.New("usage: fee <n> <amount>")
		}
		i, err := index(args[0])
		if err != nil {
			return "", err
		}
		fee, err := decimal.NewFromString(strings.ReplaceAll(args[1], ",", "."))
		if err != nil {
			return "", fmt.Errorf("invalid amount %q", args[1])
		}
		return "", w.SetFee(i, fee)

	case "unfee":
		i, err := oneIndex(args)
		if err != nil {
			return "", err
		}
		return "", w.ClearFee(i)

	case "portfolio":
		if len(args) != 2 {
			return "", errors.New("usage: portfolio <doc|all> <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid portfolio id %q", args[1])
		}
		if args[0] == "all" {
			return "", w.AssignAllPortfolios(id)
		}
		doc, err := index(args[0])
		if err != nil {
			return "", err
		}
		return "", w.AssignPortfolio(doc, id)

	case "account":
		if len(args) != 1 {
			return "", errors.New("usage: account <id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid account id %q", args[0])
		}
		return "", w.SelectAccount(id)

	case "targets":
		// targets may have been added from another terminal.
		s.catalog.Invalidate()
		portfolios, accounts, err := w.Targets(s.ctx)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(renderer.RenderPortfolios(portfolios) + "\n" + renderer.RenderAccounts(accounts)), nil

	case "autocreate", "skipdup":
		on, err := onOff(args)
		if err != nil {
			return "", err
		}
		if name == "autocreate" {
			w.SetAutoCreateSecurities(on)
		} else {
			w.SetSkipDuplicates(on)
		}
		return fmt.Sprintf("%s %v", name, on), nil

	case "assist":
		on, err := onOff(args[:min(len(args), 1)])
		if err != nil {
			return "", err
		}
		if !on {
			w.DisableAssistedExtraction()
			s.disclosed = false
			return "assisted extraction disabled", nil
		}
		cfg := s.provider
		if len(args) > 1 {
			cfg.Model = args[1]
		}
		if cfg.APIKey == "" {
			return "", fmt.Errorf("no API key for %s, set it in the environment", cfg.Provider)
		}
		w.EnableAssistedExtraction(cfg)
		s.disclosed = true
		if !w.Consent() {
			return fmt.Sprintf("assisted extraction with %s enabled. %s", cfg, cfg.Disclosure()), nil
		}
		return fmt.Sprintf("assisted extraction with %s enabled", cfg), nil

	case "consent":
		if len(args) != 1 {
			return "", errors.New("usage: consent yes|no")
		}
		switch strings.ToLower(args[0]) {
		case "yes", "y":
			cfg, ok := w.AssistedExtraction()
			if !ok || !s.disclosed {
				return "", errors.New("nothing to consent to, type `assist on` to read what is sent first")
			}
			w.GrantConsent()
			return "documents may be sent to " + cfg.Provider, nil
		case "no", "n":
			w.RevokeConsent()
			return "consent revoked", nil
		}
		return "", errors.New("usage: consent yes|no")

	case "commit":
		o, err := w.CommitAll(s.ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d transaction(s) imported", o.Imported), nil

	case "reset":
		w.Reset()
		return "", nil
	}
	return "", fmt.Errorf("unknown command %q, type help", name)
}

func index(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}

func oneIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expecting one index")
	}
	return index(args[0])
}

func onOff(args []string) (bool, error) {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "on", "yes", "true":
			return true, nil
		case "off", "no", "false":
			return false, nil
		}
	}
	return false, errors.New("expecting on or off")
}
