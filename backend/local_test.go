package backend

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"strings"
	"testing"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/date"
	"github.com/etnz/pcs-import/statement"
	"github.com/etnz/pcs-import/store"
	"github.com/shopspring/decimal"
)

var documents = map[string]string{
	"/docs/march.pdf": `Musterbank AG
15.03.2024 Kauf Siemens AG DE0007236101 Stk. 10 1.000,00 5,00 EUR
20.03.2024 Dividende Apple Inc US0378331005 12,00 USD
25.03.2024 Storno Irgendwas 3,00 EUR`,
	"/docs/april.pdf": `Musterbank AG
02.04.2024 Kauf Siemens AG DE0007236101 Stk. 1 100,00 EUR
03.04.2024 Einzahlung Sparplan 500,00 EUR`,
}

func text(path string) ([]string, error) {
	page, ok := documents[path]
	if !ok {
		return nil, errors.New("no readable text in document")
	}
	return []string{page}, nil
}

type fakeExtractor struct{ calls int }

func (e *fakeExtractor) Extract(_ context.Context, path string, consent bool) (*statement.Statement, error) {
	e.calls++
	if !consent {
		return nil, importer.ErrConsentRequired
	}
	return &statement.Statement{
		Institution: "Scan Bank",
		Transactions: []importer.ParsedTransaction{{
			Date: date.New(2024, 5, 2), Kind: importer.Deposit,
			Gross: decimal.NewFromInt(50), Net: decimal.NewFromInt(50), Currency: "EUR",
		}},
	}, nil
}

type fixture struct {
	store     *store.Store
	local     *Local
	extractor *fakeExtractor
	portfolio importer.Portfolio
	account   importer.Account
	siemens   store.Security
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st, extractor: &fakeExtractor{}}
	f.local = New(st,
		WithTextExtractor(text),
		WithExtractor(func(context.Context, importer.ProviderConfig) (Extractor, error) { return f.extractor, nil }),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	if f.portfolio, err = st.AddPortfolio(ctx, "Main"); err != nil {
		t.Fatal(err)
	}
	if f.account, err = st.AddAccount(ctx, "Cash", "EUR"); err != nil {
		t.Fatal(err)
	}
	if f.siemens, err = st.AddSecurity(ctx, store.Security{Name: "Siemens AG", ISIN: "DE0007236101"}); err != nil {
		t.Fatal(err)
	}
	return f
}

// preview previews the document at path.
func (f *fixture) preview(t *testing.T, path string) importer.DocumentPreview {
	t.Helper()
	p, err := f.local.PreviewDocument(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) request(p importer.DocumentPreview) importer.CommitRequest {
	return importer.CommitRequest{Path: p.Source.Path, Token: p.Token, PortfolioID: f.portfolio.ID, AccountID: f.account.ID}
}

func TestPreviewDocument(t *testing.T) {
	f := setup(t)
	p, err := f.local.PreviewDocument(context.Background(), "/docs/march.pdf")
	if err != nil {
		t.Fatalf("PreviewDocument() error: %v", err)
	}
	if p.Institution != "Musterbank AG" || len(p.Transactions) != 3 || p.Source.Name != "march.pdf" {
		t.Errorf("preview = %q with %d transactions from %+v", p.Institution, len(p.Transactions), p.Source)
	}
	if len(p.Matched) != 1 || p.Matched[0].ID != f.siemens.ID {
		t.Errorf("Matched = %+v", p.Matched)
	}
	// Apple is new, the unknown line names a security too.
	if len(p.NewSecurities) != 2 || p.NewSecurities[0].ISIN != "US0378331005" {
		t.Errorf("NewSecurities = %+v", p.NewSecurities)
	}
	if len(p.Warnings) != 1 {
		t.Errorf("Warnings = %q", p.Warnings)
	}
	if p.Period.String() != "2024-03-15 to 2024-03-25" {
		t.Errorf("Period = %s", p.Period)
	}

	if _, err := f.local.PreviewDocument(context.Background(), "/docs/scan.pdf"); err == nil {
		t.Error("PreviewDocument() of an unreadable document should fail")
	}
}

func TestCommitDocument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := f.request(f.preview(t, "/docs/march.pdf"))
	req.AutoCreateSecurities = true
	req.TypeOverrides = map[int]importer.Kind{2: importer.Fee}
	req.FeeOverrides = map[int]decimal.Decimal{0: decimal.RequireFromString("7.50")}

	res, err := f.local.CommitDocument(ctx, req)
	if err != nil {
		t.Fatalf("CommitDocument() error: %v", err)
	}
	if res.Imported != 3 || res.SecuritiesCreated != 2 || len(res.Errors) != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "USD amount booked on a EUR account") {
		t.Errorf("warnings = %q", res.Warnings)
	}

	list, err := f.store.Transactions(ctx, f.portfolio.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("%d stored transactions, want 3", len(list))
	}
	buy := list[0]
	if buy.SecurityID != f.siemens.ID || !buy.Fee.Equal(decimal.RequireFromString("7.5")) || !buy.Net.Equal(decimal.RequireFromString("1007.5")) {
		t.Errorf("buy = security %d fee %s net %s", buy.SecurityID, buy.Fee, buy.Net)
	}
	if list[2].Kind != importer.Fee {
		t.Errorf("overridden transaction stored as %v", list[2].Kind)
	}
}

func TestCommitDocumentSoftErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res, err := f.local.CommitDocument(ctx, f.request(f.preview(t, "/docs/march.pdf")))
	if err != nil {
		t.Fatalf("CommitDocument() error: %v", err)
	}
	// Apple is unknown without auto-create, the unknown line has no type.
	if res.Imported != 1 || len(res.Errors) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestCommitDocumentSkipsDuplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for range 2 {
		req := f.request(f.preview(t, "/docs/april.pdf"))
		req.SkipDuplicates = true
		if _, err := f.local.CommitDocument(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	p := f.preview(t, "/docs/april.pdf")
	if len(p.Duplicates) != 2 || p.Duplicates[1].Index != 1 || p.Duplicates[0].ExistingID == "" {
		t.Errorf("Duplicates = %+v", p.Duplicates)
	}

	req := f.request(p)
	req.SkipDuplicates = true
	res, err := f.local.CommitDocument(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 0 || res.Skipped != 2 {
		t.Errorf("result = %+v", res)
	}
	list, _ := f.store.Transactions(ctx, f.portfolio.ID)
	if len(list) != 2 {
		t.Errorf("%d stored transactions, want 2", len(list))
	}
}

func TestCommitDocumentInvalidTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.preview(t, "/docs/april.pdf")

	req := f.request(p)
	req.PortfolioID = 99
	if _, err := f.local.CommitDocument(ctx, req); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CommitDocument() with an unknown portfolio error = %v", err)
	}

	if err := f.store.RetireAccount(ctx, f.account.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.local.CommitDocument(ctx, f.request(p)); err == nil || !strings.Contains(err.Error(), "retired") {
		t.Errorf("CommitDocument() on a retired account error = %v", err)
	}
}

func TestPreviewDocumentAssisted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cfg := importer.ProviderConfig{Provider: "gemini", Model: "m"}

	if _, err := f.local.PreviewDocumentAssisted(ctx, "/docs/scan.pdf", cfg); !errors.Is(err, importer.ErrConsentRequired) {
		t.Errorf("PreviewDocumentAssisted() without consent error = %v", err)
	}
	if f.extractor.calls != 0 {
		t.Error("extractor called without consent")
	}

	cfg.Consent = true
	p, err := f.local.PreviewDocumentAssisted(ctx, "/docs/scan.pdf", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Institution != "Scan Bank" || p.Transactions[0].Source.Name != "scan.pdf" {
		t.Errorf("preview = %+v", p)
	}

	// the commit uses the cached preview and never sends the document again.
	res, err := f.local.CommitDocument(ctx, f.request(p))
	if err != nil || res.Imported != 1 {
		t.Errorf("CommitDocument() = %+v, %v", res, err)
	}
	if f.extractor.calls != 1 {
		t.Errorf("extractor called %d times, want 1", f.extractor.calls)
	}
}

func TestCatalogIsCached(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	list, err := f.local.ListPortfolios(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPortfolios() = %v, %v", list, err)
	}
	if _, err := f.store.AddPortfolio(ctx, "Second"); err != nil {
		t.Fatal(err)
	}
	if list, _ := f.local.ListPortfolios(ctx); len(list) != 1 {
		t.Errorf("ListPortfolios() not cached: %v", list)
	}
	f.local.Invalidate()
	if list, _ := f.local.ListPortfolios(ctx); len(list) != 2 {
		t.Errorf("ListPortfolios() after Invalidate = %v", list)
	}
	accounts, err := f.local.ListAccounts(ctx)
	if err != nil || len(accounts) != 1 || accounts[0].Currency != "EUR" {
		t.Errorf("ListAccounts() = %v, %v", accounts, err)
	}
}

func TestCommitDocumentExpiredPreview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cfg := importer.ProviderConfig{Provider: "gemini", Model: "m", Consent: true}
	p, err := f.local.PreviewDocumentAssisted(ctx, "/docs/april.pdf", cfg)
	if err != nil {
		t.Fatal(err)
	}
	f.local.previews.Flush()

	req := f.request(p)
	req.TypeOverrides = map[int]importer.Kind{0: importer.Withdrawal}
	if _, err := f.local.CommitDocument(ctx, req); !errors.Is(err, ErrPreviewExpired) {
		t.Errorf("CommitDocument() of an expired preview error = %v, want ErrPreviewExpired", err)
	}
	if list, _ := f.store.Transactions(ctx, f.portfolio.ID); len(list) != 0 {
		t.Errorf("%d transactions imported from a document that was parsed again", len(list))
	}
}

func TestCommitDocumentSamePathTwice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.preview(t, "/docs/april.pdf")
	second := f.preview(t, "/docs/april.pdf")
	if first.Token == second.Token {
		t.Fatalf("two previews share the token %q", first.Token)
	}

	req := f.request(first)
	req.TypeOverrides = map[int]importer.Kind{1: importer.Withdrawal}
	if res, err := f.local.CommitDocument(ctx, req); err != nil || res.Imported != 2 {
		t.Fatalf("CommitDocument() = %+v, %v", res, err)
	}
	// the first commit consumed its preview only.
	if _, err := f.local.CommitDocument(ctx, req); !errors.Is(err, ErrPreviewExpired) {
		t.Errorf("second commit of the same preview error = %v", err)
	}
	if res, err := f.local.CommitDocument(ctx, f.request(second)); err != nil || res.Imported != 2 {
		t.Errorf("CommitDocument() of the other preview = %+v, %v", res, err)
	}

	list, err := f.store.Transactions(ctx, f.portfolio.ID)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[importer.Kind]int{}
	for _, tx := range list {
		kinds[tx.Kind]++
	}
	if kinds[importer.Withdrawal] != 1 || kinds[importer.Deposit] != 1 || kinds[importer.Buy] != 2 {
		t.Errorf("stored kinds = %v", kinds)
	}
}

func TestCommitDocumentTokenOfAnotherDocument(t *testing.T) {
	f := setup(t)
	p := f.preview(t, "/docs/april.pdf")
	req := f.request(p)
	req.Path = "/docs/march.pdf"
	if _, err := f.local.CommitDocument(context.Background(), req); err == nil {
		t.Error("CommitDocument() accepted the preview of another document")
	}
}

func TestParsers(t *testing.T) {
	f := setup(t)
	if got := f.local.Parsers(); !slices.Equal(got, []string{"generic"}) {
		t.Errorf("Parsers() = %v", got)
	}
}
