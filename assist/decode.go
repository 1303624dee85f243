package assist

import (
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/date"
	"github.com/shopspring/decimal"
)

// lookup evaluates path on v and returns the first answer.
func lookup(path string, v any) (any, error) {
	jval, err := jsonpath.Get(path, v)
	if err != nil {
		return nil, err
	}
	return jval, nil
}

// str returns the string at path in obj, "" if missing.
func str(obj map[string]any, path string) string {
	v, err := lookup(path, obj)
	if err != nil || v == nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return fmt.Sprint(v)
	}
}

// amount returns the absolute decimal at path in obj, zero if missing.
func amount(obj map[string]any, path string) (decimal.Decimal, error) {
	s := str(obj, path)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", strings.TrimPrefix(path, "$."), s)
	}
	return d.Abs(), nil
}

func decodeTransaction(obj map[string]any) (importer.ParsedTransaction, []string, error) {
	var tx importer.ParsedTransaction
	var warnings []string

	d, err := date.ParseAny(str(obj, "$.date"))
	if err != nil {
		return tx, nil, fmt.Errorf("invalid date: %w", err)
	}
	tx.Date = d

	label := str(obj, "$.type")
	tx.Kind, err = importer.ParseKind(label)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("unknown transaction type %q", label))
	}

	tx.Currency = strings.ToUpper(str(obj, "$.currency"))
	if err := importer.ValidateCurrency(tx.Currency); err != nil {
		return tx, warnings, err
	}

	tx.SecurityName = str(obj, "$.security")
	if isin := importer.NormalizeISIN(str(obj, "$.isin")); isin != "" {
		if err := importer.ValidateISIN(isin); err != nil {
			warnings = append(warnings, fmt.Sprintf("ISIN %q ignored: %v", isin, err))
		} else {
			tx.ISIN = isin
		}
	}
	if wkn := strings.ToUpper(str(obj, "$.wkn")); wkn != "" && importer.ValidateWKN(wkn) == nil {
		tx.WKN = wkn
	}
	if s := str(obj, "$.shares"); s != "" {
		q, err := importer.ParseQuantity(s)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid shares %q", s))
		} else if !q.IsZero() {
			tx.Shares = &q
		}
	}

	for _, f := range []struct {
		path string
		dst  *decimal.Decimal
	}{
		{"$.gross", &tx.Gross},
		{"$.fee", &tx.Fee},
		{"$.tax", &tx.Tax},
		{"$.net", &tx.Net},
	} {
		v, err := amount(obj, f.path)
		if err != nil {
			return tx, warnings, err
		}
		*f.dst = v
	}

	costs := tx.Fee.Add(tx.Tax)
	switch {
	case tx.Gross.IsZero() && tx.Net.IsZero():
		return tx, warnings, fmt.Errorf("no amount")
	case tx.Net.IsZero() && tx.Kind.Outflow():
		tx.Net = tx.Gross.Add(costs)
	case tx.Net.IsZero():
		tx.Net = tx.Gross.Sub(costs)
	case tx.Gross.IsZero() && tx.Kind.Outflow():
		tx.Gross = tx.Net.Sub(costs)
	case tx.Gross.IsZero():
		tx.Gross = tx.Net.Add(costs)
	}
	return tx, warnings, nil
}
