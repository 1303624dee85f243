// Package backend implements the import backend on top of the local sqlite
// store: documents are read with pdftext, parsed by the statement registry
// or by assisted extraction, and committed to the store.
package backend

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/assist"
	"github.com/etnz/pcs-import/pdftext"
	"github.com/etnz/pcs-import/statement"
	"github.com/etnz/pcs-import/store"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	// PreviewTTL is how long a preview is kept for the commit.
	PreviewTTL = 30 * time.Minute
	// CatalogTTL is how long the portfolio and account lists are cached.
	CatalogTTL = time.Minute
)

// Extractor extracts a statement from a document with assisted extraction.
type Extractor interface {
	Extract(ctx context.Context, path string, consent bool) (*statement.Statement, error)
}

// Option configures a Local backend.
type Option func(*Local)

// WithTextExtractor replaces pdftext.ExtractText.
func WithTextExtractor(f func(path string) ([]string, error)) Option {
	return func(l *Local) { l.text = f }
}

// WithExtractor replaces the factory of assisted extractors.
func WithExtractor(f func(ctx context.Context, cfg importer.ProviderConfig) (Extractor, error)) Option {
	return func(l *Local) { l.newExtractor = f }
}

// WithRegistry replaces the statement registry.
func WithRegistry(r *statement.Registry) Option { return func(l *Local) { l.registry = r } }

// WithRequestsPerMinute limits assisted extraction requests.
func WithRequestsPerMinute(n int) Option { return func(l *Local) { l.requestsPerMinute = n } }

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(logger *log.Logger) Option { return func(l *Local) { l.logger = logger } }

// Local is an importer.Backend over a local store.
type Local struct {
	store             *store.Store
	registry          *statement.Registry
	text              func(path string) ([]string, error)
	newExtractor      func(ctx context.Context, cfg importer.ProviderConfig) (Extractor, error)
	requestsPerMinute int
	logger            *log.Logger

	previews *cache.Cache // token → importer.DocumentPreview
	catalog  *cache.Cache

	mu         sync.Mutex
	extractors map[string]Extractor // by provider/model, they carry the rate limiter
}

var _ importer.Backend = (*Local)(nil)

// New returns a backend over st.
func New(st *store.Store, opts ...Option) *Local {
	l := &Local{
		store:      st,
		registry:   statement.New(),
		text:       pdftext.ExtractText,
		logger:     log.Default(),
		previews:   cache.New(PreviewTTL, 2*PreviewTTL),
		catalog:    cache.New(CatalogTTL, 2*CatalogTTL),
		extractors: make(map[string]Extractor),
	}
	l.newExtractor = l.gemini
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) gemini(ctx context.Context, cfg importer.ProviderConfig) (Extractor, error) {
	gen, err := assist.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return assist.New(gen, cfg.Model, l.requestsPerMinute, l.logger), nil
}

// PreviewDocument implements importer.Previewer.
func (l *Local) PreviewDocument(ctx context.Context, path string) (importer.DocumentPreview, error) {
	pages, err := l.text(path)
	if err != nil {
		return importer.DocumentPreview{}, err
	}
	src := importer.NewSource(path)
	s, err := l.registry.Parse(ctx, src, pages)
	if err != nil {
		return importer.DocumentPreview{}, err
	}
	return l.preview(ctx, src, s)
}

// PreviewDocumentAssisted implements importer.AssistedPreviewer.
func (l *Local) PreviewDocumentAssisted(ctx context.Context, path string, cfg importer.ProviderConfig) (importer.DocumentPreview, error) {
	if !cfg.Consent {
		return importer.DocumentPreview{}, importer.ErrConsentRequired
	}
	ex, err := l.extractor(ctx, cfg)
	if err != nil {
		return importer.DocumentPreview{}, err
	}
	s, err := ex.Extract(ctx, path, cfg.Consent)
	if err != nil {
		return importer.DocumentPreview{}, err
	}
	src := importer.NewSource(path)
	for i := range s.Transactions {
		s.Transactions[i].Source = src
		s.Period = s.Period.Extend(s.Transactions[i].Date)
	}
	return l.preview(ctx, src, s)
}

func (l *Local) extractor(ctx context.Context, cfg importer.ProviderConfig) (Extractor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := cfg.String()
	if ex, ok := l.extractors[key]; ok {
		return ex, nil
	}
	ex, err := l.newExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	l.extractors[key] = ex
	return ex, nil
}

// preview enriches s with the known securities and potential duplicates, and
// keeps it for the commit under a new token.
func (l *Local) preview(ctx context.Context, src importer.Source, s *statement.Statement) (importer.DocumentPreview, error) {
	p := importer.DocumentPreview{
		Institution:  s.Institution,
		Period:       s.Period,
		Transactions: s.Transactions,
		Warnings:     s.Warnings,
		Source:       src,
		Token:        uuid.NewString(),
	}
	matched := make(map[int64]bool)
	created := make(map[string]bool)
	for i, tx := range s.Transactions {
		if tx.HasSecurity() {
			sec, err := l.store.FindSecurity(ctx, tx.ISIN, tx.WKN)
			switch {
			case err == nil:
				if !matched[sec.ID] {
					matched[sec.ID] = true
					p.Matched = append(p.Matched, importer.MatchedSecurity{ID: sec.ID, Name: sec.Name, ISIN: sec.ISIN, WKN: sec.WKN})
				}
			case isNotFound(err):
				key := securityKey(tx)
				if !created[key] {
					created[key] = true
					p.NewSecurities = append(p.NewSecurities, importer.NewSecurity{Name: tx.SecurityName, ISIN: tx.ISIN, WKN: tx.WKN, Currency: tx.Currency})
				}
			default:
				return importer.DocumentPreview{}, err
			}
		}

		id, found, err := l.store.FindDuplicate(ctx, store.Fingerprint(tx))
		if err != nil {
			return importer.DocumentPreview{}, err
		}
		if found {
			p.Duplicates = append(p.Duplicates, importer.PotentialDuplicate{
				Index:      i,
				ExistingID: id,
				Reason:     fmt.Sprintf("same date, type, security and amount as an imported %s", tx.Kind),
			})
		}
	}
	l.previews.Set(p.Token, p, cache.DefaultExpiration)
	return p, nil
}

// securityKey identifies a security within a document.
func securityKey(tx importer.ParsedTransaction) string {
	if tx.ISIN != "" {
		return "isin:" + importer.NormalizeISIN(tx.ISIN)
	}
	if tx.WKN != "" {
		return "wkn:" + tx.WKN
	}
	return "name:" + tx.SecurityName
}

// ListPortfolios implements importer.Catalog.
func (l *Local) ListPortfolios(ctx context.Context) ([]importer.Portfolio, error) {
	if v, ok := l.catalog.Get("portfolios"); ok {
		return v.([]importer.Portfolio), nil
	}
	list, err := l.store.Portfolios(ctx)
	if err != nil {
		return nil, err
	}
	l.catalog.Set("portfolios", list, cache.DefaultExpiration)
	return list, nil
}

// ListAccounts implements importer.Catalog.
func (l *Local) ListAccounts(ctx context.Context) ([]importer.Account, error) {
	if v, ok := l.catalog.Get("accounts"); ok {
		return v.([]importer.Account), nil
	}
	list, err := l.store.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	l.catalog.Set("accounts", list, cache.DefaultExpiration)
	return list, nil
}

// Invalidate drops the cached portfolio and account lists.
func (l *Local) Invalidate() { l.catalog.Flush() }

// Parsers returns the names of the statement formats read without assistance.
func (l *Local) Parsers() []string { return l.registry.Names() }
