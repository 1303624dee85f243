package importer

import (
	"fmt"
	"strings"
)

// Kind is the closed set of transaction kinds a statement line can be parsed into.
type Kind int

// Transaction kinds. The zero value is Unknown so a forgotten assignment never
// silently becomes a Buy.
const (
	Unknown Kind = iota
	Buy
	Sell
	Dividend
	Interest
	Deposit
	Withdrawal
	Fee
	TaxRefund
	TransferIn
	TransferOut
)

var kindNames = [...]string{
	Unknown:     "Unknown",
	Buy:         "Buy",
	Sell:        "Sell",
	Dividend:    "Dividend",
	Interest:    "Interest",
	Deposit:     "Deposit",
	Withdrawal:  "Withdrawal",
	Fee:         "Fee",
	TaxRefund:   "TaxRefund",
	TransferIn:  "TransferIn",
	TransferOut: "TransferOut",
}

// Kinds returns every kind, Unknown last, in the order they are offered to the user.
func Kinds() []Kind {
	return []Kind{Buy, Sell, Dividend, Interest, Deposit, Withdrawal, Fee, TaxRefund, TransferIn, TransferOut, Unknown}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k >= Unknown && k <= TransferOut }

// Outflow reports whether cash leaves the account for this kind, in which
// case fees and taxes add to the net amount instead of reducing it.
func (k Kind) Outflow() bool {
	switch k {
	case Buy, Withdrawal, Fee, TransferOut:
		return true
	}
	return false
}

// ParseKind parses a kind name. It ignores case, '-' and '_' so that
// "transfer-in", "TRANSFER_IN" and "TransferIn" are the same kind.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for k, name := range kindNames {
		if strings.ToLower(name) == norm {
			return Kind(k), nil
		}
	}
	return Unknown, fmt.Errorf("unknown transaction kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
