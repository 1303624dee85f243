package cmd

import (
	"context"
	"flag"
	"strconv"

	"github.com/etnz/pcs-import/renderer"
	"github.com/google/subcommands"
)

type portfoliosCmd struct{}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "list the portfolios transactions can be imported into" }
func (*portfoliosCmd) Usage() string {
	return `pcs-import portfolios

  Lists every portfolio, retired ones included.
`
}
func (*portfoliosCmd) SetFlags(*flag.FlagSet) {}

func (*portfoliosCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, st, err := OpenStore()
	if err != nil {
		return fail("%v", err)
	}
	defer st.Close()
	list, err := st.Portfolios(ctx)
	if err != nil {
		return fail("cannot list portfolios: %v", err)
	}
	printMarkdown(renderer.RenderPortfolios(list))
	return subcommands.ExitSuccess
}

type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the cash accounts imports are booked against" }
func (*accountsCmd) Usage() string {
	return `pcs-import accounts

  Lists every account, retired ones included.
`
}
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, st, err := OpenStore()
	if err != nil {
		return fail("%v", err)
	}
	defer st.Close()
	list, err := st.Accounts(ctx)
	if err != nil {
		return fail("cannot list accounts: %v", err)
	}
	printMarkdown(renderer.RenderAccounts(list))
	return subcommands.ExitSuccess
}

type addPortfolioCmd struct{}

func (*addPortfolioCmd) Name() string     { return "add-portfolio" }
func (*addPortfolioCmd) Synopsis() string { return "create a portfolio" }
func (*addPortfolioCmd) Usage() string {
	return `pcs-import add-portfolio <name>

  Creates a portfolio named <name>.
`
}
func (*addPortfolioCmd) SetFlags(*flag.FlagSet) {}

func (*addPortfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("add-portfolio takes exactly one name")
	}
	_, st, err := OpenStore()
	if err != nil {
		return fail("%v", err)
	}
	defer st.Close()
	p, err := st.AddPortfolio(ctx, f.Arg(0))
	if err != nil {
		return fail("%v", err)
	}
	success.Printf("Portfolio %q created with id %d\n", p.Name, p.ID)
	return subcommands.ExitSuccess
}

type addAccountCmd struct {
	currency string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create a cash account" }
func (*addAccountCmd) Usage() string {
	return `pcs-import add-account [-c <currency>] <name>

  Creates a cash account named <name>.
`
}
func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "EUR", "Currency of the account (ISO 4217 code)")
}

func (c *addAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("add-account takes exactly one name")
	}
	_, st, err := OpenStore()
	if err != nil {
		return fail("%v", err)
	}
	defer st.Close()
	a, err := st.AddAccount(ctx, f.Arg(0), c.currency)
	if err != nil {
		return fail("%v", err)
	}
	success.Printf("Account %q (%s) created with id %d\n", a.Name, a.Currency, a.ID)
	return subcommands.ExitSuccess
}

type retireCmd struct{}

func (*retireCmd) Name() string     { return "retire" }
func (*retireCmd) Synopsis() string { return "retire a portfolio or an account" }
func (*retireCmd) Usage() string {
	return `pcs-import retire portfolio|account <id>

  Retires a portfolio or an account. Its transactions are kept, but it is no
  longer offered as an import target.
`
}
func (*retireCmd) SetFlags(*flag.FlagSet) {}

func (*retireCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return fail("usage: retire portfolio|account <id>")
	}
	id, err := strconv.ParseInt(f.Arg(1), 10, 64)
	if err != nil {
		return fail("invalid id %q", f.Arg(1))
	}
	_, st, err := OpenStore()
	if err != nil {
		return fail("%v", err)
	}
	defer st.Close()

	switch f.Arg(0) {
	case "portfolio":
		err = st.RetirePortfolio(ctx, id)
	case "account":
		err = st.RetireAccount(ctx, id)
	default:
		return fail("cannot retire a %q, only a portfolio or an account", f.Arg(0))
	}
	if err != nil {
		return fail("%v", err)
	}
	success.Printf("%s %d retired\n", f.Arg(0), id)
	return subcommands.ExitSuccess
}
