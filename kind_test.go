package importer

import (
	"encoding/json"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"buy", Buy},
		{"SELL", Sell},
		{"TransferIn", TransferIn},
		{"transfer-in", TransferIn},
		{"TRANSFER_OUT", TransferOut},
		{"tax refund", TaxRefund},
		{"unknown", Unknown},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseKind("purchase"); err == nil {
		t.Error("ParseKind(\"purchase\") expected an error")
	}
}

func TestKindsCoverEnumeration(t *testing.T) {
	seen := make(map[Kind]bool)
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("Kinds() contains invalid kind %d", k)
		}
		seen[k] = true
	}
	if len(seen) != 11 {
		t.Errorf("Kinds() has %d distinct kinds, want 11", len(seen))
	}
	if Kind(42).Valid() {
		t.Error("Kind(42) should not be valid")
	}
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Kind{"k": TaxRefund})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"k":"TaxRefund"}` {
		t.Errorf("Marshal = %s", data)
	}
	var got map[string]Kind
	if err := json.Unmarshal([]byte(`{"k":"transfer-out"}`), &got); err != nil {
		t.Fatal(err)
	}
	if got["k"] != TransferOut {
		t.Errorf("Unmarshal = %v, want TransferOut", got["k"])
	}
}

func TestValidateISIN(t *testing.T) {
	tests := []struct {
		isin  string
		valid bool
	}{
		{"DE0005933931", true},
		{"US0378331005", true},
		{"IE00B4L5Y983", true},
		{"DE0005933932", false}, // check digit
		{"DE000593393", false},  // length
		{"de0005933931", false}, // lower case
	}
	for _, tt := range tests {
		if err := ValidateISIN(tt.isin); (err == nil) != tt.valid {
			t.Errorf("ValidateISIN(%q) = %v, want valid=%v", tt.isin, err, tt.valid)
		}
	}
	if got := NormalizeISIN(" de 0005933931"); got != "DE0005933931" {
		t.Errorf("NormalizeISIN() = %q", got)
	}
}

func TestValidateCurrency(t *testing.T) {
	if err := ValidateCurrency("EUR"); err != nil {
		t.Errorf("ValidateCurrency(EUR) = %v", err)
	}
	for _, code := range []string{"eur", "EURO", "XYZ"} {
		if err := ValidateCurrency(code); err == nil {
			t.Errorf("ValidateCurrency(%q) expected an error", code)
		}
	}
}
