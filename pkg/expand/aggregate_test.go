package expand

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/metaproteo/termquant/pkg/core"
)

func singleGroup(cols ...int) (*core.SampleGroups, map[string][]int) {
	names := make([]string, len(cols))
	for i := range cols {
		names[i] = fmt.Sprintf("S%d", i+1)
	}
	groups := &core.SampleGroups{Names: []string{"G"}, Columns: map[string][]string{"G": names}}
	return groups, map[string][]int{"G": cols}
}

func recordByID(t *testing.T, records []*core.TermRecord, id string) *core.TermRecord {
	t.Helper()
	for _, r := range records {
		if r.TermID == id {
			return r
		}
	}
	t.Fatalf("term %s missing from records", id)
	return nil
}

// TestAggregateChainScenario covers the A -> B -> C chain with p1
// annotated at C and intensities [10, 0, NA] in a single group.
func TestAggregateChainScenario(t *testing.T) {
	h := chainHierarchy(t)
	exp := &Expander{H: h}
	groups, cols := singleGroup(0, 1, 2)

	p1 := core.Peptide{ID: "p1", Terms: []string{"C"}, Intensities: []float64{10, 0, core.MissingValue()}}

	records, err := Run(context.Background(), exp, []core.Peptide{p1}, groups, cols, 3, 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Run() produced %d records, want 3", len(records))
	}

	c := recordByID(t, records, "C")
	if c.DirectPeptides != 1 || c.InheritedPeptides != 0 {
		t.Errorf("term C direct/inherited = %d/%d, want 1/0", c.DirectPeptides, c.InheritedPeptides)
	}

	for _, id := range []string{"A", "B"} {
		r := recordByID(t, records, id)
		if r.DirectPeptides != 0 || r.InheritedPeptides != 1 {
			t.Errorf("term %s direct/inherited = %d/%d, want 0/1", id, r.DirectPeptides, r.InheritedPeptides)
		}
	}

	for _, r := range records {
		stat := r.Groups["G"]
		if stat.Mean != 5.0 {
			t.Errorf("term %s group mean = %v, want 5.0", r.TermID, stat.Mean)
		}
		if stat.SampleCount != 2 {
			t.Errorf("term %s non-missing count = %d, want 2", r.TermID, stat.SampleCount)
		}
		if stat.PeptideCount != 1 {
			t.Errorf("term %s group peptide support = %d, want 1", r.TermID, stat.PeptideCount)
		}
	}
}

// TestAggregateDiamondNoDoubleCount checks that a peptide reaching a
// term via two paths contributes exactly one unit of evidence.
func TestAggregateDiamondNoDoubleCount(t *testing.T) {
	h := core.NewHierarchy()
	h.Add("T", "t", "ns")
	h.Add("L", "l", "ns", "T")
	h.Add("R", "r", "ns", "T")
	h.Add("D", "d", "ns", "L", "R")
	if err := h.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	exp := &Expander{H: h}
	groups, cols := singleGroup(0)
	p := core.Peptide{ID: "p1", Terms: []string{"D"}, Intensities: []float64{7}}

	records, err := Run(context.Background(), exp, []core.Peptide{p}, groups, cols, 1, 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	top := recordByID(t, records, "T")
	if got := top.Groups["G"].Mean; got != 7 {
		t.Errorf("term T mean = %v, want 7 (one contribution, not one per path)", got)
	}
	if top.InheritedPeptides != 1 {
		t.Errorf("term T inherited = %d, want 1", top.InheritedPeptides)
	}
}

// TestAggregatePartition checks direct + inherited == distinct
// supporting peptides for every term.
func TestAggregatePartition(t *testing.T) {
	h := chainHierarchy(t)
	exp := &Expander{H: h}
	groups, cols := singleGroup(0)

	peptides := []core.Peptide{
		{ID: "p1", Terms: []string{"C"}, Intensities: []float64{1}},
		{ID: "p2", Terms: []string{"B"}, Intensities: []float64{2}},
		{ID: "p3", Terms: []string{"B", "C"}, Intensities: []float64{3}},
		{ID: "p4", Terms: []string{"A"}, Intensities: []float64{4}},
	}

	records, err := Run(context.Background(), exp, peptides, groups, cols, 1, 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := map[string]int{"A": 4, "B": 3, "C": 2} // distinct supporting peptides
	for id, total := range want {
		r := recordByID(t, records, id)
		if r.SupportingPeptides() != total {
			t.Errorf("term %s direct+inherited = %d, want %d", id, r.SupportingPeptides(), total)
		}
	}

	b := recordByID(t, records, "B")
	if b.DirectPeptides != 2 || b.InheritedPeptides != 1 {
		t.Errorf("term B direct/inherited = %d/%d, want 2/1", b.DirectPeptides, b.InheritedPeptides)
	}
}

// TestAggregateMissingVsZero checks that an all-missing group reports
// a missing mean while a measured zero participates in the mean.
func TestAggregateMissingVsZero(t *testing.T) {
	h := chainHierarchy(t)
	exp := &Expander{H: h}

	groups := &core.SampleGroups{
		Names:   []string{"G1", "G2"},
		Columns: map[string][]string{"G1": {"S1", "S2"}, "G2": {"S3", "S4"}},
	}
	cols := map[string][]int{"G1": {0, 1}, "G2": {2, 3}}

	p := core.Peptide{
		ID:          "p1",
		Terms:       []string{"C"},
		Intensities: []float64{0.0, 5.0, core.MissingValue(), core.MissingValue()},
	}

	records, err := Run(context.Background(), exp, []core.Peptide{p}, groups, cols, 4, 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	c := recordByID(t, records, "C")

	g1 := c.Groups["G1"]
	if g1.Mean != 2.5 || g1.SampleCount != 2 {
		t.Errorf("G1 = (mean %v, nsamp %d), want (2.5, 2)", g1.Mean, g1.SampleCount)
	}

	g2 := c.Groups["G2"]
	if !math.IsNaN(g2.Mean) {
		t.Errorf("G2 mean = %v, want missing (NaN), never 0.0", g2.Mean)
	}
	if g2.SampleCount != 0 {
		t.Errorf("G2 non-missing count = %d, want 0", g2.SampleCount)
	}
	if g2.PeptideCount != 0 {
		t.Errorf("G2 peptide support = %d, want 0", g2.PeptideCount)
	}
}

// TestRunParallelMatchesSequential checks the sharded reduction
// produces the same table as the single-worker path.
func TestRunParallelMatchesSequential(t *testing.T) {
	h := chainHierarchy(t)
	groups, cols := singleGroup(0, 1)

	var peptides []core.Peptide
	for i := 0; i < 50; i++ {
		term := []string{"A", "B", "C"}[i%3]
		peptides = append(peptides, core.Peptide{
			ID:          fmt.Sprintf("p%d", i),
			Terms:       []string{term},
			Intensities: []float64{float64(i), core.MissingValue()},
		})
	}

	seq, err := Run(context.Background(), &Expander{H: h}, peptides, groups, cols, 2, 1)
	if err != nil {
		t.Fatalf("sequential Run() error = %v", err)
	}
	par, err := Run(context.Background(), &Expander{H: h}, peptides, groups, cols, 2, 4)
	if err != nil {
		t.Fatalf("parallel Run() error = %v", err)
	}

	if len(seq) != len(par) {
		t.Fatalf("record counts differ: %d vs %d", len(seq), len(par))
	}
	for i := range seq {
		s, p := seq[i], par[i]
		if s.TermID != p.TermID {
			t.Fatalf("record %d: term %s vs %s", i, s.TermID, p.TermID)
		}
		if s.DirectPeptides != p.DirectPeptides || s.InheritedPeptides != p.InheritedPeptides {
			t.Errorf("term %s: counts differ (%d/%d vs %d/%d)", s.TermID,
				s.DirectPeptides, s.InheritedPeptides, p.DirectPeptides, p.InheritedPeptides)
		}
		sg, pg := s.Groups["G"], p.Groups["G"]
		if sg.Mean != pg.Mean || sg.SampleCount != pg.SampleCount || sg.PeptideCount != pg.PeptideCount {
			t.Errorf("term %s: group stats differ (%+v vs %+v)", s.TermID, sg, pg)
		}
	}
}

// TestRunAbortsOnUnknownTerm checks the whole run fails rather than
// silently dropping evidence.
func TestRunAbortsOnUnknownTerm(t *testing.T) {
	h := chainHierarchy(t)
	groups, cols := singleGroup(0)

	peptides := []core.Peptide{
		{ID: "p1", Terms: []string{"C"}, Intensities: []float64{1}},
		{ID: "p2", Terms: []string{"MISSING"}, Intensities: []float64{2}},
	}

	if _, err := Run(context.Background(), &Expander{H: h}, peptides, groups, cols, 1, 1); err == nil {
		t.Error("Run() expected error for unknown term, got nil")
	}
}
