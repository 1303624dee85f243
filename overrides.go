package importer

import (
	"maps"

	"github.com/shopspring/decimal"
)

// Overrides holds the user corrections of the combined preview, keyed by
// global transaction index. The two maps are independent and sparse.
//
// Its zero value is ready to use.
type Overrides struct {
	types map[int]Kind
	fees  map[int]decimal.Decimal
}

// SetType overrides the kind of transaction i.
func (o *Overrides) SetType(i int, k Kind) {
	if o.types == nil {
		o.types = make(map[int]Kind)
	}
	o.types[i] = k
}

// ClearType removes the kind override of transaction i.
func (o *Overrides) ClearType(i int) { delete(o.types, i) }

// Type returns the kind override of transaction i, if any.
func (o *Overrides) Type(i int) (Kind, bool) {
	k, ok := o.types[i]
	return k, ok
}

// SetFee overrides the fee of transaction i.
func (o *Overrides) SetFee(i int, fee decimal.Decimal) {
	if o.fees == nil {
		o.fees = make(map[int]decimal.Decimal)
	}
	o.fees[i] = fee
}

// ClearFee removes the fee override of transaction i.
func (o *Overrides) ClearFee(i int) { delete(o.fees, i) }

// Fee returns the fee override of transaction i, if any.
func (o *Overrides) Fee(i int) (decimal.Decimal, bool) {
	f, ok := o.fees[i]
	return f, ok
}

// SetAllTypes replaces the whole kind map with one entry of kind k for each
// of the n transactions. Previous per-row choices are discarded, not merged.
func (o *Overrides) SetAllTypes(n int, k Kind) {
	o.types = make(map[int]Kind, n)
	for i := range n {
		o.types[i] = k
	}
}

// Types returns a copy of the kind overrides.
func (o *Overrides) Types() map[int]Kind { return maps.Clone(o.types) }

// Fees returns a copy of the fee overrides.
func (o *Overrides) Fees() map[int]decimal.Decimal { return maps.Clone(o.fees) }

// Len returns the number of overridden fields.
func (o *Overrides) Len() int { return len(o.types) + len(o.fees) }

// Reset drops every override.
func (o *Overrides) Reset() {
	o.types = nil
	o.fees = nil
}

// Resolve returns transaction tx, at global index i, with its overrides applied.
// The kind is applied first so that a fee override moves the net amount in
// the direction of the effective kind.
func (o *Overrides) Resolve(i int, tx ParsedTransaction) ParsedTransaction {
	if k, ok := o.types[i]; ok {
		tx = tx.WithKind(k)
	}
	if f, ok := o.fees[i]; ok {
		tx = tx.WithFee(f)
	}
	return tx
}

// ApplyDeliveryMode overrides every Buy of the combined preview at index from
// or later into a TransferIn. It returns the number of overrides set.
//
// In delivery mode securities arrive from another depot instead of being
// bought, so the statement's "buy" lines are inbound transfers. It is meant to
// be run once right after a parse batch, on the indices that batch appended.
func ApplyDeliveryMode(o *Overrides, c CombinedPreview, from int) int {
	n := 0
	for i := max(from, 0); i < len(c.Transactions); i++ {
		if c.Transactions[i].Kind == Buy {
			o.SetType(i, TransferIn)
			n++
		}
	}
	return n
}
