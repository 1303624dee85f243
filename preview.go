package importer

import "github.com/etnz/pcs-import/date"

// NewSecurity is a security referenced by a document that is not known to the
// backend yet. It is created on commit when auto-creation is enabled.
type NewSecurity struct {
	Name     string `json:"name"`
	ISIN     string `json:"isin,omitempty"`
	WKN      string `json:"wkn,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// MatchedSecurity is a security referenced by a document and already known to
// the backend.
type MatchedSecurity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	ISIN string `json:"isin,omitempty"`
	WKN  string `json:"wkn,omitempty"`
}

// PotentialDuplicate flags a parsed transaction that may already exist in
// the persisted history.
type PotentialDuplicate struct {
	// Index of the flagged transaction. Document-local in a DocumentPreview,
	// global in a CombinedPreview.
	Index      int    `json:"index"`
	ExistingID string `json:"existingId"`
	Reason     string `json:"reason,omitempty"`
}

// DocumentPreview is the parse result of one document.
type DocumentPreview struct {
	Institution   string               `json:"institution"`
	Period        date.Range           `json:"-"`
	Transactions  []ParsedTransaction  `json:"transactions"`
	NewSecurities []NewSecurity        `json:"newSecurities"`
	Matched       []MatchedSecurity    `json:"matched"`
	Duplicates    []PotentialDuplicate `json:"duplicates"`
	Warnings      []string             `json:"warnings"`
	Source        Source               `json:"source"`
	// Token identifies this preview to the backend that made it. A commit
	// refers to it so the overrides apply to exactly these transactions.
	Token string `json:"token,omitempty"`
}

// CombinedTransaction is a transaction of the combined preview, tagged with
// the document it comes from.
type CombinedTransaction struct {
	ParsedTransaction
	Document    int    `json:"document"` // index in the wizard's document list
	Institution string `json:"institution"`
}

// CombinedPreview is the merged, document-agnostic view of every loaded
// document. It is derived and never persisted.
type CombinedPreview struct {
	Transactions  []CombinedTransaction
	NewSecurities []NewSecurity
	Duplicates    []PotentialDuplicate
	Warnings      []string
}

// Portfolio is a target portfolio of an import.
type Portfolio struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Retired bool   `json:"retired"`
}

// Account is the cash account the imported transactions are booked against.
type Account struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Retired  bool   `json:"retired"`
}

// ActivePortfolios returns the portfolios that are not retired.
func ActivePortfolios(all []Portfolio) []Portfolio {
	var active []Portfolio
	for _, p := range all {
		if !p.Retired {
			active = append(active, p)
		}
	}
	return active
}

// ActiveAccounts returns the accounts that are not retired.
func ActiveAccounts(all []Account) []Account {
	var active []Account
	for _, a := range all {
		if !a.Retired {
			active = append(active, a)
		}
	}
	return active
}
