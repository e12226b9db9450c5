package expand

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/metaproteo/termquant/pkg/core"
)

// termAgg accumulates the evidence one term receives. Per-sample sums
// start as missing and become numeric on the first non-missing
// contribution; a supporting peptide's measured zero therefore counts
// as evidence while an all-missing sample stays missing.
type termAgg struct {
	sums      []float64
	direct    map[string]bool
	inherited map[string]bool
	groupPeps map[string]map[string]bool
}

// Aggregator reduces expanded assignments into per-term records. It
// is not safe for concurrent use; shard across peptide partitions
// with one Aggregator per worker and combine with Merge.
type Aggregator struct {
	h        *core.Hierarchy
	groups   *core.SampleGroups
	cols     map[string][]int
	nsamples int
	terms    map[int32]*termAgg
}

// NewAggregator creates an aggregator for the given hierarchy, sample
// groups, resolved group column indexes, and total sample-column
// count.
func NewAggregator(h *core.Hierarchy, groups *core.SampleGroups, cols map[string][]int, nsamples int) *Aggregator {
	return &Aggregator{
		h:        h,
		groups:   groups,
		cols:     cols,
		nsamples: nsamples,
		terms:    make(map[int32]*termAgg),
	}
}

func (a *Aggregator) term(t int32) *termAgg {
	ta, ok := a.terms[t]
	if !ok {
		ta = &termAgg{
			sums:      make([]float64, a.nsamples),
			direct:    make(map[string]bool),
			inherited: make(map[string]bool),
			groupPeps: make(map[string]map[string]bool),
		}
		for i := range ta.sums {
			ta.sums[i] = core.MissingValue()
		}
		a.terms[t] = ta
	}
	return ta
}

// Add folds one peptide's expanded assignments into the aggregate.
// Each assignment carries a distinct term for the peptide, so
// direct/inherited counts stay a partition of the peptide's support.
func (a *Aggregator) Add(p *core.Peptide, assignments []Assignment) {
	for _, as := range assignments {
		ta := a.term(as.Term)

		for s := 0; s < a.nsamples && s < len(p.Intensities); s++ {
			v := p.Intensities[s]
			if core.Missing(v) {
				continue
			}
			if core.Missing(ta.sums[s]) {
				ta.sums[s] = v
			} else {
				ta.sums[s] += v
			}
		}

		if as.Direct {
			ta.direct[p.ID] = true
			delete(ta.inherited, p.ID)
		} else if !ta.direct[p.ID] {
			ta.inherited[p.ID] = true
		}

		for _, g := range a.groups.Names {
			for _, s := range a.cols[g] {
				if s < len(p.Intensities) && !core.Missing(p.Intensities[s]) {
					peps := ta.groupPeps[g]
					if peps == nil {
						peps = make(map[string]bool)
						ta.groupPeps[g] = peps
					}
					peps[p.ID] = true
					break
				}
			}
		}
	}
}

// Merge folds another aggregator's state into this one. Both must
// share the same hierarchy, groups, and sample layout. The reduction
// is commutative and associative, so shard merge order does not
// matter.
func (a *Aggregator) Merge(b *Aggregator) {
	for t, tb := range b.terms {
		ta := a.term(t)
		for s, v := range tb.sums {
			if core.Missing(v) {
				continue
			}
			if core.Missing(ta.sums[s]) {
				ta.sums[s] = v
			} else {
				ta.sums[s] += v
			}
		}
		for p := range tb.direct {
			ta.direct[p] = true
			delete(ta.inherited, p)
		}
		for p := range tb.inherited {
			if !ta.direct[p] {
				ta.inherited[p] = true
			}
		}
		for g, peps := range tb.groupPeps {
			dst := ta.groupPeps[g]
			if dst == nil {
				dst = make(map[string]bool, len(peps))
				ta.groupPeps[g] = dst
			}
			for p := range peps {
				dst[p] = true
			}
		}
	}
}

// Records materializes one TermRecord per aggregated term, sorted by
// term identifier. Group means are computed over non-missing
// per-sample sums only; an all-missing group reports a missing mean,
// never zero.
func (a *Aggregator) Records() []*core.TermRecord {
	out := make([]*core.TermRecord, 0, len(a.terms))
	for t, ta := range a.terms {
		rec := &core.TermRecord{
			TermID:            a.h.ID(t),
			Name:              a.h.Name(t),
			Namespace:         a.h.Namespace(t),
			Groups:            make(map[string]core.GroupStat, a.groups.Len()),
			DirectPeptides:    len(ta.direct),
			InheritedPeptides: len(ta.inherited),
		}
		for _, g := range a.groups.Names {
			var sum float64
			var n int
			for _, s := range a.cols[g] {
				if !core.Missing(ta.sums[s]) {
					sum += ta.sums[s]
					n++
				}
			}
			stat := core.GroupStat{SampleCount: n, PeptideCount: len(ta.groupPeps[g])}
			if n > 0 {
				stat.Mean = sum / float64(n)
			} else {
				stat.Mean = core.MissingValue()
			}
			rec.Groups[g] = stat
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TermID < out[j].TermID })
	return out
}

// Run expands every peptide and aggregates the results, sharding the
// peptide list across workers. The hierarchy is shared read-only;
// each worker owns a private aggregator, merged after all workers
// finish. The first expansion error aborts the whole run.
func Run(ctx context.Context, exp *Expander, peptides []core.Peptide, groups *core.SampleGroups, cols map[string][]int, nsamples, workers int) ([]*core.TermRecord, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(peptides) {
		workers = len(peptides)
	}
	if workers <= 1 {
		agg := NewAggregator(exp.H, groups, cols, nsamples)
		for i := range peptides {
			as, err := exp.Expand(&peptides[i])
			if err != nil {
				return nil, err
			}
			agg.Add(&peptides[i], as)
		}
		return agg.Records(), nil
	}

	shards := make([]*Aggregator, workers)
	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(peptides) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(peptides) {
			hi = len(peptides)
		}
		w := w
		part := peptides[lo:hi]
		g.Go(func() error {
			agg := NewAggregator(exp.H, groups, cols, nsamples)
			for i := range part {
				if err := ctx.Err(); err != nil {
					return err
				}
				as, err := exp.Expand(&part[i])
				if err != nil {
					return err
				}
				agg.Add(&part[i], as)
			}
			shards[w] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := NewAggregator(exp.H, groups, cols, nsamples)
	for _, s := range shards {
		if s != nil {
			total.Merge(s)
		}
	}
	return total.Records(), nil
}
