package expand

import (
	"sync/atomic"

	"github.com/metaproteo/termquant/pkg/core"
)

// pairSep joins the taxon and function halves of an interaction term
// identifier.
const pairSep = "|"

// PairExpander computes (taxon, function) interaction terms for the
// combined function-taxonomy mode: each peptide's taxonomy annotations
// are collapsed to the target rank and crossed with its direct
// function annotations. Interaction terms form a flat term set of
// their own, so evidence at a pair is always direct.
type PairExpander struct {
	Tax        *core.Hierarchy
	Func       *core.Hierarchy
	TargetRank string
	Policy     RankPolicy

	unannotated atomic.Int64
	rankSkipped atomic.Int64
}

// Unannotated returns the number of peptides lacking a taxonomy or a
// function annotation. Such peptides yield no interaction evidence;
// this is not an error.
func (e *PairExpander) Unannotated() int64 { return e.unannotated.Load() }

// RankSkipped returns the number of taxonomy annotations that produced
// no evidence under the configured target rank.
func (e *PairExpander) RankSkipped() int64 { return e.rankSkipped.Load() }

// Pairs builds the interaction term set over all peptides. Peptides
// carry their taxonomy annotations in Terms; funcs maps peptide IDs to
// their direct function annotations. The returned hierarchy holds one
// leaf term per observed pair, and the assignment slices are aligned
// to the peptides slice. Unknown taxonomy or function identifiers
// abort the run.
func (e *PairExpander) Pairs(peptides []core.Peptide, funcs map[string][]string) (*core.Hierarchy, [][]Assignment, error) {
	h := core.NewHierarchy()
	pairIDs := make([][]string, len(peptides))

	for pi := range peptides {
		p := &peptides[pi]
		fids := funcs[p.ID]
		if len(p.Terms) == 0 || len(fids) == 0 {
			e.unannotated.Add(1)
			continue
		}

		// Validate the function annotations up front so an unknown
		// identifier surfaces even when every taxon is rank-skipped.
		fis := make([]int32, len(fids))
		for i, fid := range fids {
			fi, ok := e.Func.Index(fid)
			if !ok {
				return nil, nil, &core.UnknownTermError{PeptideID: p.ID, TermID: fid}
			}
			fis[i] = fi
		}

		seen := make(map[string]bool)
		for _, tid := range p.Terms {
			ti, ok := e.Tax.Index(tid)
			if !ok {
				return nil, nil, &core.UnknownTermError{PeptideID: p.ID, TermID: tid}
			}
			ti, ok = e.Tax.RankAtOrAbove(ti, e.TargetRank)
			if !ok || (e.Policy == RankExact && e.Tax.Namespace(ti) != e.TargetRank) {
				e.rankSkipped.Add(1)
				continue
			}
			for _, fi := range fis {
				id := e.Tax.ID(ti) + pairSep + e.Func.ID(fi)
				if seen[id] {
					continue
				}
				seen[id] = true
				h.Add(id,
					e.Tax.Name(ti)+pairSep+e.Func.Name(fi),
					e.Tax.Namespace(ti)+pairSep+e.Func.Namespace(fi))
				pairIDs[pi] = append(pairIDs[pi], id)
			}
		}
	}

	if err := h.Build(); err != nil {
		return nil, nil, err
	}

	out := make([][]Assignment, len(peptides))
	for pi, ids := range pairIDs {
		for _, id := range ids {
			i, _ := h.Index(id)
			out[pi] = append(out[pi], Assignment{Term: i, Direct: true})
		}
	}
	return h, out, nil
}
