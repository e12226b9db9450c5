// Package core provides the data model for hierarchical term
// quantification: the term hierarchy, peptide annotations, sample
// groups, and aggregated term records.
package core

import (
	"fmt"
	"sync"
)

// Hierarchy is an index-addressed term graph. Term identifiers are
// interned to dense int32 indexes; parent and child relations are
// adjacency slices over those indexes. The parent relation must be
// acyclic (a DAG for functional ontologies, a tree for taxonomy).
//
// A Hierarchy is built once with Add calls followed by Build, and is
// read-only afterwards, so it can be shared across concurrent workers
// without locking. The descendant table is the one exception: it is
// derived lazily, exactly once, behind a sync.Once.
type Hierarchy struct {
	index      map[string]int32
	ids        []string
	names      []string
	namespaces []string

	parentIDs [][]string // raw parent identifiers until Build
	parents   [][]int32
	children  [][]int32

	slim map[int32]bool // nil when no slim set is configured

	descOnce    sync.Once
	descendants [][]int32
}

// NewHierarchy returns an empty hierarchy builder.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{index: make(map[string]int32)}
}

// Add registers a term with its metadata and parent identifiers.
// Parents do not need to exist yet; they are resolved in Build.
// Adding the same identifier twice merges parents and keeps the first
// non-empty name and namespace.
func (h *Hierarchy) Add(id, name, namespace string, parents ...string) {
	if i, ok := h.index[id]; ok {
		if h.names[i] == "" {
			h.names[i] = name
		}
		if h.namespaces[i] == "" {
			h.namespaces[i] = namespace
		}
		h.parentIDs[i] = append(h.parentIDs[i], parents...)
		return
	}
	i := int32(len(h.ids))
	h.index[id] = i
	h.ids = append(h.ids, id)
	h.names = append(h.names, name)
	h.namespaces = append(h.namespaces, namespace)
	h.parentIDs = append(h.parentIDs, append([]string(nil), parents...))
}

// SetSlim marks the given term identifiers as the slim subset.
// Identifiers not present in the hierarchy are ignored; slimming is a
// projection of the existing term set, never an extension of it.
func (h *Hierarchy) SetSlim(ids []string) {
	h.slim = make(map[int32]bool, len(ids))
	for _, id := range ids {
		if i, ok := h.index[id]; ok {
			h.slim[i] = true
		}
	}
}

// HasSlim reports whether a slim subset has been configured.
func (h *Hierarchy) HasSlim() bool { return h.slim != nil }

// SlimMap maps a term index into the slim subset. Slim members map to
// themselves; everything else has no mapping.
func (h *Hierarchy) SlimMap(i int32) (int32, bool) {
	if h.slim != nil && h.slim[i] {
		return i, true
	}
	return 0, false
}

// Build resolves parent identifiers to indexes, derives the child
// adjacency, and verifies that the parent relation is acyclic. It must
// be called before any traversal.
func (h *Hierarchy) Build() error {
	n := len(h.ids)
	h.parents = make([][]int32, n)
	h.children = make([][]int32, n)

	for i := 0; i < n; i++ {
		seen := make(map[int32]bool, len(h.parentIDs[i]))
		for _, pid := range h.parentIDs[i] {
			p, ok := h.index[pid]
			if !ok {
				return fmt.Errorf("term %s: unknown parent %s", h.ids[i], pid)
			}
			if p == int32(i) || seen[p] {
				continue
			}
			seen[p] = true
			h.parents[i] = append(h.parents[i], p)
			h.children[p] = append(h.children[p], int32(i))
		}
	}
	h.parentIDs = nil

	return h.checkAcyclic()
}

// checkAcyclic runs an iterative three-color DFS over parent edges.
func (h *Hierarchy) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]uint8, len(h.ids))

	for start := range h.ids {
		if color[start] != white {
			continue
		}
		// Stack holds (node, next-parent-offset) pairs.
		type frame struct {
			node int32
			next int
		}
		stack := []frame{{int32(start), 0}}
		color[start] = gray
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(h.parents[f.node]) {
				p := h.parents[f.node][f.next]
				f.next++
				switch color[p] {
				case white:
					color[p] = gray
					stack = append(stack, frame{p, 0})
				case gray:
					return fmt.Errorf("hierarchy contains a cycle through %s", h.ids[p])
				}
				continue
			}
			color[f.node] = black
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

// Len returns the number of terms.
func (h *Hierarchy) Len() int { return len(h.ids) }

// Index returns the dense index for a term identifier.
func (h *Hierarchy) Index(id string) (int32, bool) {
	i, ok := h.index[id]
	return i, ok
}

// ID returns the identifier for a term index.
func (h *Hierarchy) ID(i int32) string { return h.ids[i] }

// Name returns the human-readable name for a term index.
func (h *Hierarchy) Name(i int32) string { return h.names[i] }

// Namespace returns the namespace (functional mode) or rank
// (taxonomy mode) for a term index.
func (h *Hierarchy) Namespace(i int32) string { return h.namespaces[i] }

// Parents returns the direct parents of a term.
func (h *Hierarchy) Parents(i int32) []int32 { return h.parents[i] }

// Children returns the direct children of a term.
func (h *Hierarchy) Children(i int32) []int32 { return h.children[i] }

// IsLeaf reports whether a term has no children anywhere in the
// hierarchy.
func (h *Hierarchy) IsLeaf(i int32) bool { return len(h.children[i]) == 0 }

// Ancestors returns every term reachable from i by following parent
// edges, excluding i itself. Each ancestor appears exactly once even
// when reachable through multiple paths.
func (h *Hierarchy) Ancestors(i int32) []int32 {
	var out []int32
	seen := map[int32]bool{i: true}
	stack := append([]int32(nil), h.parents[i]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		stack = append(stack, h.parents[n]...)
	}
	return out
}

// Descendants returns every term reachable from i by following child
// edges, excluding i itself. The full table is derived on first use
// and cached; recomputation is idempotent so concurrent first calls
// are safe.
func (h *Hierarchy) Descendants(i int32) []int32 {
	h.descOnce.Do(h.computeDescendants)
	return h.descendants[i]
}

func (h *Hierarchy) computeDescendants() {
	h.descendants = make([][]int32, len(h.ids))
	for i := range h.ids {
		var out []int32
		seen := map[int32]bool{int32(i): true}
		stack := append([]int32(nil), h.children[i]...)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			stack = append(stack, h.children[n]...)
		}
		h.descendants[i] = out
	}
}
