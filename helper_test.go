package importer

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/etnz/pcs-import/date"
	"github.com/shopspring/decimal"
)

// quiet is a logger for tests.
var quiet = log.New(io.Discard, "", 0)

// D is a helper for test to create decimals from const
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// tx is a helper to create a parsed transaction in EUR.
func tx(k Kind, security, isin, net string) ParsedTransaction {
	return ParsedTransaction{
		Date:         date.New(2024, 3, 15),
		Kind:         k,
		SecurityName: security,
		ISIN:         isin,
		Gross:        D(net),
		Net:          D(net),
		Currency:     "EUR",
	}
}

// doc is a helper to create the preview of the document at path.
func doc(path string, txs ...ParsedTransaction) DocumentPreview {
	src := NewSource(path)
	for i := range txs {
		txs[i].Source = src
	}
	return DocumentPreview{Institution: "Test Bank", Transactions: txs, Source: src}
}

// fakePicker returns a fixed selection.
type fakePicker struct {
	files []string
	err   error
	calls int
}

func (p *fakePicker) PickFiles(context.Context) ([]string, error) {
	p.calls++
	return p.files, p.err
}

// fakeBackend serves canned previews and records every call.
type fakeBackend struct {
	mu sync.Mutex

	previews    map[string]DocumentPreview
	previewErrs map[string]error
	commitRes   map[string]CommitResult
	commitErrs  map[string]error
	portfolios  []Portfolio
	accounts    []Account

	// block, when set, is waited on by PreviewDocument until closed or ctx is done.
	block chan struct{}
	// commitBlock, when set, holds CommitDocument the same way once the call is recorded.
	commitBlock chan struct{}

	previewCalls  []string
	assistedCalls []ProviderConfig
	commits       []CommitRequest
}

func newFakeBackend(previews ...DocumentPreview) *fakeBackend {
	b := &fakeBackend{
		previews:    make(map[string]DocumentPreview),
		previewErrs: make(map[string]error),
		commitRes:   make(map[string]CommitResult),
		commitErrs:  make(map[string]error),
	}
	for _, p := range previews {
		b.previews[p.Source.Path] = p
	}
	return b
}

func (b *fakeBackend) preview(ctx context.Context, path string) (DocumentPreview, error) {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return DocumentPreview{}, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.previewCalls = append(b.previewCalls, path)
	if err, ok := b.previewErrs[path]; ok {
		return DocumentPreview{}, err
	}
	p, ok := b.previews[path]
	if !ok {
		return DocumentPreview{}, errors.New("unsupported institution")
	}
	return p, nil
}

func (b *fakeBackend) PreviewDocument(ctx context.Context, path string) (DocumentPreview, error) {
	return b.preview(ctx, path)
}

func (b *fakeBackend) PreviewDocumentAssisted(ctx context.Context, path string, cfg ProviderConfig) (DocumentPreview, error) {
	b.mu.Lock()
	b.assistedCalls = append(b.assistedCalls, cfg)
	b.mu.Unlock()
	if !cfg.Consent {
		return DocumentPreview{}, ErrConsentRequired
	}
	return b.preview(ctx, path)
}

func (b *fakeBackend) CommitDocument(ctx context.Context, req CommitRequest) (CommitResult, error) {
	b.mu.Lock()
	b.commits = append(b.commits, req)
	b.mu.Unlock()
	if b.commitBlock != nil {
		select {
		case <-b.commitBlock:
		case <-ctx.Done():
			return CommitResult{}, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.commitErrs[req.Path]; ok {
		return CommitResult{}, err
	}
	if r, ok := b.commitRes[req.Path]; ok {
		return r, nil
	}
	return CommitResult{Imported: len(b.previews[req.Path].Transactions)}, nil
}

func (b *fakeBackend) ListPortfolios(context.Context) ([]Portfolio, error) { return b.portfolios, nil }
func (b *fakeBackend) ListAccounts(context.Context) ([]Account, error)     { return b.accounts, nil }

func (b *fakeBackend) commitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commits)
}

func (b *fakeBackend) previewCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.previewCalls)
}

// newTestWizard returns a wizard over b with no pause between documents.
func newTestWizard(b *fakeBackend, p FilePicker, opts ...Option) *Wizard {
	opts = append([]Option{WithQueue(NewQueue(1, 0)), WithLogger(quiet)}, opts...)
	return New(b, p, opts...)
}
