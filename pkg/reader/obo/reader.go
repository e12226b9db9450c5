// Package obo reads OBO-format ontology files (GO, COG, EC exports)
// into the core term hierarchy.
package obo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/metaproteo/termquant/pkg/core"
)

const scannerBufferSize = 1 << 20 // GO term definitions can be long

// internPool avoids duplicate string allocations for repeated values
// such as namespaces.
type internPool struct {
	m map[string]string
}

func newInternPool() *internPool {
	return &internPool{m: make(map[string]string, 16)}
}

func (p *internPool) get(s string) string {
	if v, ok := p.m[s]; ok {
		return v
	}
	p.m[s] = s
	return s
}

// Read parses an OBO ontology into a built hierarchy. Only [Term]
// stanzas are consulted; parent edges come from is_a and part_of
// lines. Obsolete terms are skipped.
func Read(r io.Reader) (*core.Hierarchy, error) {
	h := core.NewHierarchy()
	if err := scan(r, func(t stanza) {
		if t.obsolete || t.id == "" {
			return
		}
		h.Add(t.id, t.name, t.namespace, t.parents...)
	}); err != nil {
		return nil, err
	}
	if err := h.Build(); err != nil {
		return nil, fmt.Errorf("invalid ontology: %w", err)
	}
	return h, nil
}

// ReadSlimIDs parses a slim OBO and returns the identifiers of its
// non-obsolete terms. The slim is a membership set over the full
// ontology, applied with Hierarchy.SetSlim.
func ReadSlimIDs(r io.Reader) ([]string, error) {
	var ids []string
	if err := scan(r, func(t stanza) {
		if !t.obsolete && t.id != "" {
			ids = append(ids, t.id)
		}
	}); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("slim ontology contains no terms")
	}
	return ids, nil
}

type stanza struct {
	id        string
	name      string
	namespace string
	parents   []string
	obsolete  bool
}

func scan(r io.Reader, emit func(stanza)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	pool := newInternPool()
	inTerm := false
	var cur stanza

	flush := func() {
		if inTerm {
			emit(cur)
		}
		cur = stanza{}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '[' {
			flush()
			inTerm = line == "[Term]"
			continue
		}
		if !inTerm {
			continue
		}

		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "id":
			cur.id = val
		case "name":
			cur.name = val
		case "namespace":
			cur.namespace = pool.get(val)
		case "is_a":
			cur.parents = append(cur.parents, trimComment(val))
		case "relationship":
			// part_of is hierarchical in GO; other relationship
			// types are not parent edges.
			if rest, ok := strings.CutPrefix(val, "part_of "); ok {
				cur.parents = append(cur.parents, trimComment(rest))
			}
		case "is_obsolete":
			cur.obsolete = val == "true"
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading OBO file: %w", err)
	}
	return nil
}

// trimComment strips the "! label" suffix OBO uses on references.
func trimComment(val string) string {
	if i := strings.Index(val, "!"); i >= 0 {
		val = val[:i]
	}
	return strings.TrimSpace(val)
}
