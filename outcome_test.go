package importer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOutcomeSuccess(t *testing.T) {
	tests := []struct {
		name     string
		imported int
		errors   []string
		want     bool
	}{
		{"nothing went wrong", 3, nil, true},
		{"nothing to import", 0, nil, true},
		{"partial failure", 2, []string{"b.pdf: boom"}, true},
		{"total failure", 0, []string{"a.pdf: boom"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Outcome{Imported: tt.imported, Errors: tt.errors}
			if got := o.Success(); got != tt.want {
				t.Errorf("Success() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcomeAccumulates(t *testing.T) {
	var o Outcome
	o.Add("a.pdf", CommitResult{Imported: 2, Skipped: 1, SecuritiesCreated: 1, Warnings: []string{"rounded"}})
	o.Fail("b.pdf", errors.New("portfolio 9 not found"))
	o.Add("c.pdf", CommitResult{Imported: 1, Errors: []string{"line 4: unknown security"}})

	if o.Imported != 3 || o.Skipped != 1 || o.SecuritiesCreated != 1 {
		t.Errorf("counters = %d/%d/%d, want 3/1/1", o.Imported, o.Skipped, o.SecuritiesCreated)
	}
	wantErrs := []string{"b.pdf: portfolio 9 not found", "c.pdf: line 4: unknown security"}
	if diff := cmp.Diff(wantErrs, o.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.pdf: rounded"}, o.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}
