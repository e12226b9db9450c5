package tabular

import (
	"strings"
	"testing"

	"github.com/metaproteo/termquant/pkg/core"
)

func TestReadNopep(t *testing.T) {
	input := "go_term\tA1\tA2\n" +
		"GO:1,GO:2\t5\tNA\n" +
		"\t1\t2\n" +
		"GO:1\t0\t3\n"

	table, err := ReadNopep(strings.NewReader(input), "go_term", "")
	if err != nil {
		t.Fatalf("ReadNopep() error = %v", err)
	}

	if len(table.Samples) != 2 || table.Samples[0] != "A1" || table.Samples[1] != "A2" {
		t.Fatalf("Samples = %v, want [A1 A2]", table.Samples)
	}
	if table.Funcs != nil {
		t.Error("Funcs must be nil when no second annotation column is requested")
	}
	if len(table.Rows) != 3 {
		t.Fatalf("Rows = %d, want 3", len(table.Rows))
	}

	r0 := table.Rows[0]
	if len(r0.Terms) != 2 || r0.Terms[0] != "GO:1" || r0.Terms[1] != "GO:2" {
		t.Errorf("row 1 terms = %v, want [GO:1 GO:2]", r0.Terms)
	}
	if r0.Intensities[0] != 5 || !core.Missing(r0.Intensities[1]) {
		t.Errorf("row 1 intensities = %v, want [5 missing]", r0.Intensities)
	}

	// A row with an empty annotation cell is an unannotated unit.
	if len(table.Rows[1].Terms) != 0 {
		t.Errorf("row 2 terms = %v, want none", table.Rows[1].Terms)
	}

	// Zero is a measured value, not missing.
	if core.Missing(table.Rows[2].Intensities[0]) {
		t.Error("row 3: measured zero treated as missing")
	}

	// Rows are distinct units of support even when annotations repeat.
	ids := make(map[string]bool)
	for _, r := range table.Rows {
		if ids[r.ID] {
			t.Fatalf("duplicate row identifier %s", r.ID)
		}
		ids[r.ID] = true
	}
}

func TestReadNopepTwoAnnotationColumns(t *testing.T) {
	input := "taxon\tgo_term\tA1\n" +
		"1000\tGO:1;GO:2\t7\n" +
		"100\t\t3\n"

	table, err := ReadNopep(strings.NewReader(input), "taxon", "go_term")
	if err != nil {
		t.Fatalf("ReadNopep() error = %v", err)
	}
	if len(table.Samples) != 1 || table.Samples[0] != "A1" {
		t.Fatalf("Samples = %v, want [A1]", table.Samples)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(table.Rows))
	}

	r0 := table.Rows[0]
	if len(r0.Terms) != 1 || r0.Terms[0] != "1000" {
		t.Errorf("row 1 terms = %v, want [1000]", r0.Terms)
	}
	fs := table.Funcs[r0.ID]
	if len(fs) != 2 || fs[0] != "GO:1" || fs[1] != "GO:2" {
		t.Errorf("row 1 function terms = %v, want [GO:1 GO:2]", fs)
	}
	if _, ok := table.Funcs[table.Rows[1].ID]; ok {
		t.Error("row with an empty function cell must have no function entry")
	}
}

func TestReadNopepErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		termCol string
		funcCol string
	}{
		{"empty file", "", "go_term", ""},
		{"missing annotation column", "other\tA1\nx\t1\n", "go_term", ""},
		{"missing second column", "taxon\tA1\n1000\t1\n", "taxon", "go_term"},
		{"no sample columns", "go_term\nGO:1\n", "go_term", ""},
		{"negative intensity", "go_term\tA1\nGO:1\t-4\n", "go_term", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadNopep(strings.NewReader(tt.input), tt.termCol, tt.funcCol); err == nil {
				t.Error("ReadNopep() expected error, got nil")
			}
		})
	}
}
