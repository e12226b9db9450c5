package taxonomy

import (
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	input := "id\tparent_id\trank\tname\n" +
		"1\t1\tsuperkingdom\tBacteria\n" +
		"562\t561\tspecies\tEscherichia coli\n" +
		"561\t543\tgenus\tEscherichia\n" +
		"543\t1\tfamily\tEnterobacteriaceae\n"

	h, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if h.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", h.Len())
	}

	sp, ok := h.Index("562")
	if !ok {
		t.Fatal("species 562 missing")
	}
	if h.Namespace(sp) != "species" {
		t.Errorf("rank = %q, want species", h.Namespace(sp))
	}

	anc := h.Ancestors(sp)
	if len(anc) != 3 {
		t.Fatalf("species has %d ancestors, want 3", len(anc))
	}

	g, ok := h.RankAtOrAbove(sp, "genus")
	if !ok || h.ID(g) != "561" {
		t.Errorf("RankAtOrAbove(562, genus) = %v, want 561", g)
	}

	root, _ := h.Index("1")
	if got := h.Parents(root); len(got) != 0 {
		t.Errorf("root should have no parents, got %v", got)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"missing column", "id\tparent_id\tname\n1\t1\tx\n"},
		{"empty id", "id\tparent_id\trank\tname\n\t1\tspecies\tx\n"},
		{"unknown parent", "id\tparent_id\trank\tname\n2\t404\tspecies\tx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
