// Package expand implements term expansion and evidence aggregation:
// each peptide's direct annotations are expanded to their full
// ancestor closure over the hierarchy, and the per-sample intensity
// evidence is reduced into one record per reachable term.
package expand

import (
	"fmt"
	"sync/atomic"

	"github.com/metaproteo/termquant/pkg/core"
)

// RankPolicy selects how taxonomy peptides are aligned to a target
// rank before expansion.
type RankPolicy int

const (
	// RankNearest collapses a peptide assigned below the target rank
	// to its nearest ancestor at or above the target. Peptides
	// assigned above the target contribute no evidence.
	RankNearest RankPolicy = iota
	// RankExact keeps a peptide only when the collapse lands exactly
	// on a node of the target rank.
	RankExact
)

// ParseRankPolicy parses a rank policy name.
func ParseRankPolicy(s string) (RankPolicy, error) {
	switch s {
	case "", "nearest":
		return RankNearest, nil
	case "exact":
		return RankExact, nil
	}
	return 0, fmt.Errorf("invalid rank policy '%s', must be nearest or exact", s)
}

// Assignment is one (peptide, term) pair produced by expansion.
// Direct marks the peptide's own annotation; ancestors reached
// through expansion are inherited.
type Assignment struct {
	Term   int32
	Direct bool
}

// Expander computes ancestor closures over a read-only hierarchy.
// It is safe for concurrent use.
type Expander struct {
	H          *core.Hierarchy
	SlimDown   bool
	TargetRank string
	Policy     RankPolicy

	unannotated atomic.Int64
	slimDropped atomic.Int64
	rankSkipped atomic.Int64
}

// Unannotated returns the number of peptides seen with zero direct
// annotations.
func (e *Expander) Unannotated() int64 { return e.unannotated.Load() }

// SlimDropped returns the number of expanded assignments dropped
// because the term has no slim mapping.
func (e *Expander) SlimDropped() int64 { return e.slimDropped.Load() }

// RankSkipped returns the number of direct annotations that produced
// no evidence under the configured target rank.
func (e *Expander) RankSkipped() int64 { return e.rankSkipped.Load() }

// Expand computes the closure of a peptide's direct annotations: for
// each direct term, the term itself plus every ancestor. Each term
// appears at most once per peptide regardless of how many paths reach
// it; a term that is both a direct annotation and an ancestor of
// another is reported as direct.
func (e *Expander) Expand(p *core.Peptide) ([]Assignment, error) {
	if len(p.Terms) == 0 {
		e.unannotated.Add(1)
		return nil, nil
	}

	direct := make(map[int32]bool)
	closure := make(map[int32]bool)

	for _, id := range p.Terms {
		i, ok := e.H.Index(id)
		if !ok {
			return nil, &core.UnknownTermError{PeptideID: p.ID, TermID: id}
		}
		if e.TargetRank != "" {
			i, ok = e.collapse(i)
			if !ok {
				e.rankSkipped.Add(1)
				continue
			}
		}
		direct[i] = true
		closure[i] = true
		for _, a := range e.H.Ancestors(i) {
			closure[a] = true
		}
	}

	out := make([]Assignment, 0, len(closure))
	for t := range closure {
		if e.SlimDown {
			s, ok := e.H.SlimMap(t)
			if !ok {
				e.slimDropped.Add(1)
				continue
			}
			t = s
		}
		out = append(out, Assignment{Term: t, Direct: direct[t]})
	}
	return out, nil
}

// collapse aligns a taxonomy node to the target rank.
func (e *Expander) collapse(i int32) (int32, bool) {
	n, ok := e.H.RankAtOrAbove(i, e.TargetRank)
	if !ok {
		return 0, false
	}
	if e.Policy == RankExact && e.H.Namespace(n) != e.TargetRank {
		return 0, false
	}
	return n, true
}
