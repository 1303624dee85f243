package importer

import "sort"

// DocumentRange is the contiguous slice of combined-preview indices owned by
// one document.
type DocumentRange struct {
	Start int
	Len   int
}

// End returns the first index after the range.
func (r DocumentRange) End() int { return r.Start + r.Len }

// Ranges is the table of document ranges of a combined preview, in document
// order. It is built once from the document list and is the only place where
// global and document-local indices are converted.
type Ranges []DocumentRange

// NewRanges builds the range table of previews.
func NewRanges(previews []DocumentPreview) Ranges {
	r := make(Ranges, len(previews))
	start := 0
	for i, p := range previews {
		r[i] = DocumentRange{Start: start, Len: len(p.Transactions)}
		start += len(p.Transactions)
	}
	return r
}

// Total returns the number of transactions covered by the table.
func (r Ranges) Total() int {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1].End()
}

// Translate converts a global index into the document that owns it and the
// index within that document. ok is false when global is out of range.
func (r Ranges) Translate(global int) (doc, local int, ok bool) {
	if global < 0 || global >= r.Total() {
		return 0, 0, false
	}
	// first range ending after global; empty ranges are skipped because
	// their end equals their start.
	doc = sort.Search(len(r), func(i int) bool { return r[i].End() > global })
	return doc, global - r[doc].Start, true
}

// Global converts a document-local index into a global one.
func (r Ranges) Global(doc, local int) (int, bool) {
	if doc < 0 || doc >= len(r) || local < 0 || local >= r[doc].Len {
		return 0, false
	}
	return r[doc].Start + local, true
}

// SplitByDocument splits a map keyed by global index into one map per
// document keyed by local index. Keys that do not translate are dropped.
// Every returned map is non-nil.
func SplitByDocument[V any](r Ranges, global map[int]V) []map[int]V {
	split := make([]map[int]V, len(r))
	for i := range split {
		split[i] = make(map[int]V)
	}
	for g, v := range global {
		doc, local, ok := r.Translate(g)
		if !ok {
			continue
		}
		split[doc][local] = v
	}
	return split
}
