package importer

import "github.com/shopspring/decimal"

// CommitRequest asks the backend to persist the transactions of one document.
// Override maps are keyed by document-local index.
type CommitRequest struct {
	Path                 string
	Token                string // of the DocumentPreview the overrides refer to
	PortfolioID          int64
	AccountID            int64
	AutoCreateSecurities bool
	SkipDuplicates       bool
	TypeOverrides        map[int]Kind
	FeeOverrides         map[int]decimal.Decimal
}

// CommitResult is the backend's report for one document. Errors are soft
// failures: the document was processed but some of its lines were not.
type CommitResult struct {
	Imported          int      `json:"transactionsImported"`
	Skipped           int      `json:"transactionsSkipped"`
	SecuritiesCreated int      `json:"securitiesCreated"`
	Errors            []string `json:"errors"`
	Warnings          []string `json:"warnings"`
}

// Outcome accumulates the results of committing every document.
// Errors and warnings are prefixed with the document display name.
type Outcome struct {
	Imported          int
	Skipped           int
	SecuritiesCreated int
	Errors            []string
	Warnings          []string
}

// Add accumulates the result of the document named name.
func (o *Outcome) Add(name string, r CommitResult) {
	o.Imported += r.Imported
	o.Skipped += r.Skipped
	o.SecuritiesCreated += r.SecuritiesCreated
	for _, e := range r.Errors {
		o.Errors = append(o.Errors, name+": "+e)
	}
	for _, w := range r.Warnings {
		o.Warnings = append(o.Warnings, name+": "+w)
	}
}

// Fail records a hard failure of the document named name.
func (o *Outcome) Fail(name string, err error) {
	o.Errors = append(o.Errors, name+": "+err.Error())
}

// Success reports whether the import is presented as a success: either
// nothing went wrong, or at least one transaction made it in. Errors are
// still listed in the latter case.
func (o Outcome) Success() bool {
	return len(o.Errors) == 0 || o.Imported > 0
}
