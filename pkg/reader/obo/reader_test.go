package obo

import (
	"strings"
	"testing"
)

const sampleOBO = `format-version: 1.2
data-version: releases/2024-01-01
ontology: go

[Term]
id: GO:0008150
name: biological_process
namespace: biological_process

[Term]
id: GO:0008152
name: metabolic process
namespace: biological_process
is_a: GO:0008150 ! biological_process

[Term]
id: GO:0009056
name: catabolic process
namespace: biological_process
is_a: GO:0008152 ! metabolic process
relationship: part_of GO:0008150 ! biological_process

[Term]
id: GO:0000001
name: gone
namespace: biological_process
is_obsolete: true

[Typedef]
id: part_of
name: part of
`

func TestRead(t *testing.T) {
	h, err := Read(strings.NewReader(sampleOBO))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (obsolete term skipped)", h.Len())
	}

	if _, ok := h.Index("GO:0000001"); ok {
		t.Error("obsolete term should be skipped")
	}

	i, ok := h.Index("GO:0008152")
	if !ok {
		t.Fatal("GO:0008152 missing")
	}
	if h.Name(i) != "metabolic process" {
		t.Errorf("Name = %q", h.Name(i))
	}
	if h.Namespace(i) != "biological_process" {
		t.Errorf("Namespace = %q", h.Namespace(i))
	}

	cat, _ := h.Index("GO:0009056")
	anc := h.Ancestors(cat)
	if len(anc) != 2 {
		t.Fatalf("GO:0009056 has %d ancestors, want 2 (is_a and part_of edges)", len(anc))
	}
}

func TestReadSlimIDs(t *testing.T) {
	ids, err := ReadSlimIDs(strings.NewReader(sampleOBO))
	if err != nil {
		t.Fatalf("ReadSlimIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ReadSlimIDs() = %v, want 3 ids", ids)
	}
	for _, id := range ids {
		if id == "GO:0000001" {
			t.Error("obsolete term should not be in slim set")
		}
	}
}

func TestReadSlimIDsEmpty(t *testing.T) {
	if _, err := ReadSlimIDs(strings.NewReader("format-version: 1.2\n")); err == nil {
		t.Error("expected error for empty slim, got nil")
	}
}

func TestReadUnknownParent(t *testing.T) {
	bad := "[Term]\nid: GO:1\nname: x\nis_a: GO:404\n"
	if _, err := Read(strings.NewReader(bad)); err == nil {
		t.Error("expected error for unknown parent, got nil")
	}
}
