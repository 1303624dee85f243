package importer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTranslate(t *testing.T) {
	// documents of 3, 0, 2 and 1 transactions.
	r := Ranges{{Start: 0, Len: 3}, {Start: 3, Len: 0}, {Start: 3, Len: 2}, {Start: 5, Len: 1}}

	tests := []struct {
		global int
		doc    int
		local  int
		ok     bool
	}{
		{global: 0, doc: 0, local: 0, ok: true},
		{global: 2, doc: 0, local: 2, ok: true},
		{global: 3, doc: 2, local: 0, ok: true},
		{global: 4, doc: 2, local: 1, ok: true},
		{global: 5, doc: 3, local: 0, ok: true},
		{global: 6, ok: false},
		{global: -1, ok: false},
	}
	for _, tt := range tests {
		doc, local, ok := r.Translate(tt.global)
		if ok != tt.ok || (ok && (doc != tt.doc || local != tt.local)) {
			t.Errorf("Translate(%d) = (%d, %d, %v), want (%d, %d, %v)", tt.global, doc, local, ok, tt.doc, tt.local, tt.ok)
		}
		if !ok {
			continue
		}
		if g, ok := r.Global(doc, local); !ok || g != tt.global {
			t.Errorf("Global(%d, %d) = (%d, %v), want (%d, true)", doc, local, g, ok, tt.global)
		}
	}
	if r.Total() != 6 {
		t.Errorf("Total() = %d, want 6", r.Total())
	}
	if _, ok := r.Global(1, 0); ok {
		t.Error("Global(1, 0) on an empty document should not translate")
	}
}

func TestNewRanges(t *testing.T) {
	r := NewRanges([]DocumentPreview{
		doc("a.pdf", tx(Buy, "", "", "1"), tx(Buy, "", "", "1")),
		doc("b.pdf"),
		doc("c.pdf", tx(Buy, "", "", "1")),
	})
	want := Ranges{{Start: 0, Len: 2}, {Start: 2, Len: 0}, {Start: 2, Len: 1}}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("NewRanges() mismatch (-want +got):\n%s", diff)
	}
	if NewRanges(nil).Total() != 0 {
		t.Error("empty table should have a total of 0")
	}
}

// TestSplitByDocumentUsesOffsets checks that an override set on the third
// transaction of the second document reaches that document only, at local
// index 2.
func TestSplitByDocumentUsesOffsets(t *testing.T) {
	const a = 4 // transactions in the first document
	r := Ranges{{Start: 0, Len: a}, {Start: a, Len: 5}}

	split := SplitByDocument(r, map[int]Kind{a + 2: Sell, 1: Dividend, 99: Fee})

	want := []map[int]Kind{
		{1: Dividend},
		{2: Sell},
	}
	if diff := cmp.Diff(want, split); diff != "" {
		t.Errorf("SplitByDocument() mismatch (-want +got):\n%s", diff)
	}
	if _, found := split[0][2]; found {
		t.Error("override leaked into the first document")
	}
}

func TestSplitByDocumentNeverNil(t *testing.T) {
	split := SplitByDocument[Kind](Ranges{{0, 1}, {1, 1}}, nil)
	for i, m := range split {
		if m == nil {
			t.Errorf("map of document %d is nil", i)
		}
	}
}
