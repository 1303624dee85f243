package date

import "fmt"

// Range represents a range of dates, boundaries included.
// The zero Range is empty.
type Range struct{ From, To Date }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// IsZero reports whether the range has never been extended.
func (r Range) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Extend returns the smallest range containing both r and d.
func (r Range) Extend(d Date) Range {
	if d.IsZero() {
		return r
	}
	if r.IsZero() {
		return Range{From: d, To: d}
	}
	if d.Before(r.From) {
		r.From = d
	}
	if d.After(r.To) {
		r.To = d
	}
	return r
}

func (r Range) String() string {
	if r.IsZero() {
		return ""
	}
	if r.From == r.To {
		return r.From.String()
	}
	return fmt.Sprintf("%s to %s", r.From, r.To)
}
