package importer

import (
	"path/filepath"

	"github.com/etnz/pcs-import/date"
	"github.com/shopspring/decimal"
)

// Source is the back reference from a parsed transaction to the document it
// was read from.
type Source struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// NewSource returns the source for a file path, deriving its display name.
func NewSource(path string) Source { return Source{Path: path, Name: DisplayName(path)} }

// DisplayName is the name a document is shown under: the base name of its path.
func DisplayName(path string) string { return filepath.Base(path) }

// ParsedTransaction is one candidate transaction extracted from a single
// source document.
//
// Parsed transactions are never mutated once produced by a parser: user
// corrections live in Overrides and are resolved with WithKind and WithFee.
type ParsedTransaction struct {
	Date         date.Date       `json:"date"`
	Kind         Kind            `json:"kind"`
	SecurityName string          `json:"securityName,omitempty"`
	ISIN         string          `json:"isin,omitempty"`
	WKN          string          `json:"wkn,omitempty"`
	Shares       *Quantity       `json:"shares,omitempty"`
	Gross        decimal.Decimal `json:"gross"`
	Fee          decimal.Decimal `json:"fee"`
	Tax          decimal.Decimal `json:"tax"`
	Net          decimal.Decimal `json:"net"`
	Currency     string          `json:"currency"`
	Note         string          `json:"note,omitempty"`
	Source       Source          `json:"source"`
}

// HasSecurity reports whether the transaction refers to a security.
func (t ParsedTransaction) HasSecurity() bool {
	return t.ISIN != "" || t.WKN != "" || t.SecurityName != ""
}

// WithKind returns a copy of t of kind k.
func (t ParsedTransaction) WithKind(k Kind) ParsedTransaction {
	t.Kind = k
	return t
}

// WithFee returns a copy of t with its fee replaced and the net amount moved
// by the difference: outflows cost more with a higher fee, inflows yield less.
func (t ParsedTransaction) WithFee(fee decimal.Decimal) ParsedTransaction {
	delta := fee.Sub(t.Fee)
	t.Fee = fee
	if t.Kind.Outflow() {
		t.Net = t.Net.Add(delta)
	} else {
		t.Net = t.Net.Sub(delta)
	}
	return t
}

// GrossMoney returns the gross amount in the transaction currency.
func (t ParsedTransaction) GrossMoney() Money { return M(t.Gross, t.Currency) }

// FeeMoney returns the fee in the transaction currency.
func (t ParsedTransaction) FeeMoney() Money { return M(t.Fee, t.Currency) }

// NetMoney returns the net amount in the transaction currency.
func (t ParsedTransaction) NetMoney() Money { return M(t.Net, t.Currency) }
