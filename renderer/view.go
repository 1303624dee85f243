package renderer

import (
	"fmt"

	importer "github.com/etnz/pcs-import"
)

// MaxWarnings is the number of warnings shown before they are summarized as
// "+N more".
const MaxWarnings = 3

// DocumentRow is a loaded document in the preview.
type DocumentRow struct {
	Index        int
	Name         string
	Institution  string
	Period       string
	Transactions int
	Portfolio    string // empty when not assigned
}

// TransactionRow is a combined transaction, with its overrides applied.
type TransactionRow struct {
	Index      int
	Date       string
	Kind       string
	Overridden bool
	Security   string
	Shares     string
	Gross      string
	Fee        string
	Net        string
	Currency   string
	Source     string
}

// DuplicateRow is a potential duplicate of the combined preview.
type DuplicateRow struct {
	Index      int
	ExistingID string
	Reason     string
}

// Preview is the view of the preview step.
type Preview struct {
	Documents     []DocumentRow
	Transactions  []TransactionRow
	NewSecurities []importer.NewSecurity
	Duplicates    []DuplicateRow
	Warnings      []string
	MoreWarnings  int
	Account       string // empty when not selected
	Consent       bool
	Assisted      string // provider, empty for structured extraction
	Disclosure    string // shown until consent is granted
	Ready         bool
}

// NewPreview builds the preview view of w. portfolios and accounts are used to
// name the targets.
func NewPreview(w *importer.Wizard, portfolios []importer.Portfolio, accounts []importer.Account) *Preview {
	pnames := make(map[int64]string, len(portfolios))
	for _, p := range portfolios {
		pnames[p.ID] = p.Name
	}
	v := &Preview{Ready: w.CanCommit(), Consent: w.Consent()}
	if cfg, ok := w.AssistedExtraction(); ok {
		v.Assisted = cfg.String()
		if !v.Consent {
			v.Disclosure = cfg.Disclosure()
		}
	}
	if id, ok := w.Account(); ok {
		v.Account = fmt.Sprintf("#%d", id)
		for _, a := range accounts {
			if a.ID == id {
				v.Account = fmt.Sprintf("%s (%s)", a.Name, a.Currency)
			}
		}
	}

	for i, d := range w.Documents() {
		row := DocumentRow{
			Index:        i,
			Name:         d.Source.Name,
			Institution:  d.Institution,
			Transactions: len(d.Transactions),
		}
		if !d.Period.IsZero() {
			row.Period = d.Period.String()
		}
		if id, ok := w.Portfolio(i); ok {
			row.Portfolio = pnames[id]
			if row.Portfolio == "" {
				row.Portfolio = fmt.Sprintf("#%d", id)
			}
		}
		v.Documents = append(v.Documents, row)
	}

	c := w.Combined()
	for i := range c.Transactions {
		tx, overridden, ok := w.Effective(i)
		if !ok {
			break
		}
		v.Transactions = append(v.Transactions, transactionRow(i, tx, overridden))
	}
	v.NewSecurities = c.NewSecurities
	for _, d := range c.Duplicates {
		v.Duplicates = append(v.Duplicates, DuplicateRow{Index: d.Index, ExistingID: d.ExistingID, Reason: d.Reason})
	}
	v.Warnings, v.MoreWarnings = truncate(c.Warnings, MaxWarnings)
	return v
}

func transactionRow(i int, tx importer.CombinedTransaction, overridden bool) TransactionRow {
	row := TransactionRow{
		Index:      i,
		Date:       tx.Date.String(),
		Kind:       tx.Kind.String(),
		Overridden: overridden,
		Security:   tx.SecurityName,
		Gross:      tx.GrossMoney().String(),
		Fee:        tx.FeeMoney().String(),
		Net:        tx.NetMoney().String(),
		Currency:   tx.Currency,
		Source:     tx.Source.Name,
	}
	if row.Security == "" {
		row.Security = tx.ISIN
	} else if tx.ISIN != "" {
		row.Security += " (" + tx.ISIN + ")"
	}
	if tx.Shares != nil {
		row.Shares = tx.Shares.String()
	}
	return row
}

// truncate returns the first max items and the number of items left out.
func truncate(items []string, max int) ([]string, int) {
	if len(items) <= max {
		return items, 0
	}
	return items[:max], len(items) - max
}
