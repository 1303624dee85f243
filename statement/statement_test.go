package statement

import (
	"context"
	"errors"
	"strings"
	"testing"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/date"
	"github.com/shopspring/decimal"
)

const german = `Musterbank AG
Depotauszug März 2024
15.03.2024 Kauf Siemens AG DE0007236101 723610 Stk. 10 1.234,56 4,95 EUR
20.03.2024 Dividende Siemens AG DE0007236101 45,00 0 11,87 EUR
28.03.2024 Storno Irgendwas 12,00 EUR`

const english = `Example Brokerage Inc.
2024-03-15 Buy Apple Inc US0378331005 5 shares 1,000.50 1.00 USD
2024-04-02 deposit Cash transfer 2,500.00 USD`

func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGenericGerman(t *testing.T) {
	s, err := NewGeneric().Parse(context.Background(), []string{german})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if s.Institution != "Musterbank AG" {
		t.Errorf("Institution = %q", s.Institution)
	}
	if len(s.Transactions) != 3 {
		t.Fatalf("%d transactions, want 3", len(s.Transactions))
	}

	buy := s.Transactions[0]
	if buy.Kind != importer.Buy || buy.Date != date.New(2024, 3, 15) {
		t.Errorf("first transaction = %v on %v", buy.Kind, buy.Date)
	}
	if buy.SecurityName != "Siemens AG" || buy.ISIN != "DE0007236101" || buy.WKN != "723610" {
		t.Errorf("security = %q %q %q", buy.SecurityName, buy.ISIN, buy.WKN)
	}
	if buy.Shares == nil || buy.Shares.String() != "10" {
		t.Errorf("shares = %v", buy.Shares)
	}
	if !buy.Gross.Equal(D("1234.56")) || !buy.Fee.Equal(D("4.95")) || !buy.Net.Equal(D("1239.51")) {
		t.Errorf("amounts = %s %s %s", buy.Gross, buy.Fee, buy.Net)
	}

	div := s.Transactions[1]
	if div.Kind != importer.Dividend || !div.Tax.Equal(D("11.87")) || !div.Net.Equal(D("33.13")) {
		t.Errorf("dividend = %v tax %s net %s", div.Kind, div.Tax, div.Net)
	}

	if s.Transactions[2].Kind != importer.Unknown {
		t.Errorf("unknown label parsed as %v", s.Transactions[2].Kind)
	}
	if len(s.Warnings) != 1 || !strings.Contains(s.Warnings[0], `line 5: unknown transaction type "Storno"`) {
		t.Errorf("warnings = %q", s.Warnings)
	}
}

func TestGenericEnglish(t *testing.T) {
	s, err := NewGeneric().Parse(context.Background(), []string{english})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(s.Transactions) != 2 {
		t.Fatalf("%d transactions, want 2", len(s.Transactions))
	}
	buy := s.Transactions[0]
	if buy.Shares == nil || buy.Shares.String() != "5" || !buy.Gross.Equal(D("1000.50")) || !buy.Fee.Equal(D("1")) {
		t.Errorf("buy = shares %v gross %s fee %s", buy.Shares, buy.Gross, buy.Fee)
	}
	if buy.Currency != "USD" || buy.SecurityName != "Apple Inc" {
		t.Errorf("buy = %q in %s", buy.SecurityName, buy.Currency)
	}
	dep := s.Transactions[1]
	if dep.Kind != importer.Deposit || !dep.Net.Equal(D("2500")) || dep.HasSecurity() || dep.Note != "Cash transfer" {
		t.Errorf("deposit = %v %s security=%v", dep.Kind, dep.Net, dep.HasSecurity())
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		german bool
		want   string
		ok     bool
	}{
		{"1.234,56", true, "1234.56", true},
		{"1,234.56", false, "1234.56", true},
		{"12,5", true, "12.5", true},
		{"-3,00", true, "-3", true},
		{"3,00-", true, "-3", true},
		{"EUR", true, "", false},
		{"1,2,3", true, "", false},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in, tt.german)
		if (err == nil) != tt.ok || (tt.ok && !got.Equal(D(tt.want))) {
			t.Errorf("parseAmount(%q, %v) = %s, %v", tt.in, tt.german, got, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := New()
	src := importer.NewSource("/statements/2024-03.pdf")

	s, err := r.Parse(context.Background(), src, []string{german})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	for _, tx := range s.Transactions {
		if tx.Source != src {
			t.Errorf("transaction source = %+v", tx.Source)
		}
	}
	want := date.Range{From: date.New(2024, 3, 15), To: date.New(2024, 3, 28)}
	if s.Period != want {
		t.Errorf("Period = %v, want %v", s.Period, want)
	}

	_, err = r.Parse(context.Background(), src, []string{"Dear customer,\nthank you."})
	if !errors.Is(err, ErrUnsupportedInstitution) {
		t.Errorf("Parse() error = %v, want ErrUnsupportedInstitution", err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "generic" {
		t.Errorf("Names() = %v", names)
	}
}
