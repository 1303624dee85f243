// Package statement turns the text of bank and broker statements into parsed
// transactions.
//
// A Registry holds the known parsers and picks the first one that recognizes
// a document. Documents no parser recognizes are rejected with
// ErrUnsupportedInstitution.
package statement

import (
	"context"
	"errors"
	"fmt"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/date"
)

// ErrUnsupportedInstitution is returned for a document no parser recognizes.
var ErrUnsupportedInstitution = errors.New("unsupported institution: no parser recognizes this document")

// Statement is what a parser extracted from one document.
type Statement struct {
	Institution  string
	Period       date.Range
	Transactions []importer.ParsedTransaction
	Warnings     []string
}

// Parser is the strategy interface of statement formats.
type Parser interface {
	// Name returns the parser identifier, e.g. "generic".
	Name() string

	// CanParse reports whether the parser recognizes the document.
	CanParse(pages []string) bool

	// Parse extracts the transactions of the document.
	Parse(ctx context.Context, pages []string) (*Statement, error)
}

// Registry holds all registered parsers.
type Registry struct {
	parsers []Parser
}

// New creates a registry with all built-in parsers.
func New() *Registry {
	return &Registry{parsers: []Parser{NewGeneric()}}
}

// Register adds a parser. Parsers are tried in registration order, after the
// built-in ones.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Find returns the first parser that recognizes pages.
func (r *Registry) Find(pages []string) (Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(pages) {
			return p, nil
		}
	}
	return nil, ErrUnsupportedInstitution
}

// Names returns the names of the registered parsers.
func (r *Registry) Names() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}

// Parse parses the pages of the document src with the first parser that
// recognizes them. Every transaction is tagged with src and the period is
// extended to cover every transaction date.
func (r *Registry) Parse(ctx context.Context, src importer.Source, pages []string) (*Statement, error) {
	p, err := r.Find(pages)
	if err != nil {
		return nil, err
	}
	s, err := p.Parse(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("%s parser: %w", p.Name(), err)
	}
	for i := range s.Transactions {
		s.Transactions[i].Source = src
		s.Period = s.Period.Extend(s.Transactions[i].Date)
	}
	return s, nil
}
