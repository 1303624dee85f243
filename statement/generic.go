package statement

import (
	"context"
	"fmt"
	"strings"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/date"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// keywords maps the case folded transaction labels found on German and
// English statements to their kind.
var keywords = map[string]importer.Kind{
	"kauf":              importer.Buy,
	"wertpapierkauf":    importer.Buy,
	"buy":               importer.Buy,
	"purchase":          importer.Buy,
	"verkauf":           importer.Sell,
	"wertpapierverkauf": importer.Sell,
	"sell":              importer.Sell,
	"sale":              importer.Sell,
	"dividende":         importer.Dividend,
	"ausschüttung":      importer.Dividend,
	"dividend":          importer.Dividend,
	"distribution":      importer.Dividend,
	"zinsen":            importer.Interest,
	"interest":          importer.Interest,
	"einzahlung":        importer.Deposit,
	"deposit":           importer.Deposit,
	"auszahlung":        importer.Withdrawal,
	"withdrawal":        importer.Withdrawal,
	"gebühr":            importer.Fee,
	"gebuehr":           importer.Fee,
	"entgelt":           importer.Fee,
	"fee":               importer.Fee,
	"steuererstattung":  importer.TaxRefund,
	"einlieferung":      importer.TransferIn,
	"auslieferung":      importer.TransferOut,
}

// cashOnly kinds never refer to a security unless an identifier is printed.
var cashOnly = map[importer.Kind]bool{
	importer.Deposit:    true,
	importer.Withdrawal: true,
	importer.Interest:   true,
	importer.Fee:        true,
	importer.TaxRefund:  true,
}

// shareMarkers introduce or follow a number of shares.
var shareMarkers = map[string]bool{"stk": true, "stk.": true, "stück": true, "shares": true, "units": true}

// Generic parses statements laid out as one transaction per row:
//
//	date kind description [ISIN] [WKN] [shares Stk.] gross [fee [tax]] currency
//
// Dates written with dots select German number formats, any other date
// format selects English ones. The first line of the document that is not a
// transaction row names the institution.
type Generic struct {
	fold cases.Caser
}

// NewGeneric returns the generic row parser.
func NewGeneric() *Generic {
	return &Generic{fold: cases.Fold()}
}

// Name implements Parser.
func (*Generic) Name() string { return "generic" }

// CanParse implements Parser: the document has at least one transaction row.
func (g *Generic) CanParse(pages []string) bool {
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			if _, ok := g.row(line); ok {
				return true
			}
		}
	}
	return false
}

// Parse implements Parser.
func (g *Generic) Parse(ctx context.Context, pages []string) (*Statement, error) {
	s := &Statement{}
	n := 0
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, line := range strings.Split(page, "\n") {
			n++
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			r, ok := g.row(line)
			if !ok {
				if s.Institution == "" && len(s.Transactions) == 0 {
					s.Institution = line
				}
				continue
			}
			tx, warnings := r.transaction()
			for _, w := range warnings {
				s.Warnings = append(s.Warnings, fmt.Sprintf("line %d: %s", n, w))
			}
			s.Transactions = append(s.Transactions, tx)
		}
	}
	if len(s.Transactions) == 0 {
		return nil, fmt.Errorf("no transaction found")
	}
	if s.Institution == "" {
		s.Institution = "Unknown institution"
	}
	return s, nil
}

// row is a tokenized transaction row.
type row struct {
	date     date.Date
	german   bool
	label    string
	kind     importer.Kind
	known    bool
	tokens   []string // between the label and the currency
	currency string
}

// row tokenizes line, and reports whether it looks like a transaction row: a
// date, a label, at least one amount and a currency.
func (g *Generic) row(line string) (row, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return row{}, false
	}
	d, err := date.ParseAny(fields[0])
	if err != nil {
		return row{}, false
	}
	cur := fields[len(fields)-1]
	if importer.ValidateCurrency(cur) != nil {
		return row{}, false
	}
	r := row{
		date:     d,
		german:   strings.Contains(fields[0], "."),
		label:    fields[1],
		tokens:   fields[2 : len(fields)-1],
		currency: cur,
	}
	if _, err := parseAmount(r.tokens[len(r.tokens)-1], r.german); err != nil {
		return row{}, false
	}
	r.kind, r.known = g.kind(r.label)
	return r, true
}

func (g *Generic) kind(label string) (importer.Kind, bool) {
	folded := g.fold.String(strings.Trim(label, ":"))
	if k, ok := keywords[folded]; ok {
		return k, true
	}
	if k, err := importer.ParseKind(folded); err == nil && k != importer.Unknown {
		return k, true
	}
	return importer.Unknown, false
}

// transaction converts the row. Problems that do not prevent the import are
// returned as warnings.
func (r row) transaction() (importer.ParsedTransaction, []string) {
	var warnings []string
	tx := importer.ParsedTransaction{
		Date:     r.date,
		Kind:     r.kind,
		Currency: r.currency,
	}
	if !r.known {
		warnings = append(warnings, fmt.Sprintf("unknown transaction type %q", r.label))
	}

	var words []string
	var amounts []decimal.Decimal
	for i := 0; i < len(r.tokens); i++ {
		tok := r.tokens[i]
		lower := strings.ToLower(tok)
		switch {
		case tx.ISIN == "" && importer.ValidateISIN(importer.NormalizeISIN(tok)) == nil:
			tx.ISIN = importer.NormalizeISIN(tok)
		case tx.WKN == "" && len(amounts) == 0 && isWKN(tok, i > 0 && r.tokens[i-1] == tx.ISIN && tx.ISIN != ""):
			tx.WKN = tok
		case shareMarkers[lower] && i+1 < len(r.tokens) && tx.Shares == nil && len(amounts) == 0:
			// "Stk. 10"
			if q, err := parseAmount(r.tokens[i+1], r.german); err == nil {
				shares := importer.Q(q)
				tx.Shares = &shares
				i++
			}
		default:
			v, err := parseAmount(tok, r.german)
			if err != nil {
				if len(amounts) == 0 {
					words = append(words, tok)
				}
				continue
			}
			if i+1 < len(r.tokens) && shareMarkers[strings.ToLower(r.tokens[i+1])] && tx.Shares == nil {
				// "10 Stk."
				shares := importer.Q(v)
				tx.Shares = &shares
				i++
				continue
			}
			amounts = append(amounts, v.Abs())
		}
	}
	if tx.ISIN == "" && tx.WKN == "" && cashOnly[tx.Kind] {
		tx.Note = strings.Join(words, " ")
	} else {
		tx.SecurityName = strings.Join(words, " ")
	}

	switch len(amounts) {
	case 0:
		warnings = append(warnings, "no amount found")
	case 1:
		tx.Gross = amounts[0]
	case 2:
		tx.Gross, tx.Fee = amounts[0], amounts[1]
	default:
		tx.Gross, tx.Fee, tx.Tax = amounts[0], amounts[1], amounts[2]
		if len(amounts) > 3 {
			warnings = append(warnings, fmt.Sprintf("%d extra amounts ignored", len(amounts)-3))
		}
	}
	costs := tx.Fee.Add(tx.Tax)
	if tx.Kind.Outflow() {
		tx.Net = tx.Gross.Add(costs)
	} else {
		tx.Net = tx.Gross.Sub(costs)
	}
	return tx, warnings
}

// isWKN reports whether tok is a WKN. Six letter words are common in
// security names and six digit numbers in amounts, so a WKN must mix letters
// and digits unless it directly follows the ISIN.
func isWKN(tok string, afterISIN bool) bool {
	if importer.ValidateWKN(tok) != nil {
		return false
	}
	if afterISIN {
		return true
	}
	return strings.ContainsAny(tok, "0123456789") && strings.ContainsAny(tok, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}

// parseAmount parses a number in the German (1.234,56) or English (1,234.56)
// format. A leading or trailing minus sign is accepted.
func parseAmount(s string, german bool) (decimal.Decimal, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasSuffix(s, "-"):
		neg, s = true, s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	thousands, dec := ",", "."
	if german {
		thousands, dec = ".", ","
	}
	s = strings.ReplaceAll(s, thousands, "")
	s = strings.ReplaceAll(s, dec, ".")
	if s == "" || strings.Trim(s, "0123456789.") != "" || strings.Count(s, ".") > 1 {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
