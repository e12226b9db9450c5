package core

// GroupStat holds the aggregated evidence a term has in one sample
// group. Mean is NaN when every sample in the group is missing for
// the term; that is "no evidence", which is distinct from a measured
// mean of zero.
type GroupStat struct {
	Mean         float64
	SampleCount  int // samples in the group with a non-missing value
	PeptideCount int // distinct supporting peptides with evidence in the group
}

// FilterFlags records the outcome of each filter criterion for one
// term, kept for diagnostics alongside the retained table.
type FilterFlags struct {
	Evidence    bool
	Informative bool
	Coverage    bool
}

// Pass reports whether all criteria passed.
func (f FilterFlags) Pass() bool {
	return f.Evidence && f.Informative && f.Coverage
}

// TermRecord is one row of the aggregated term table: a term with its
// per-group intensity statistics and peptide support. Records are
// created by aggregation, annotated by filtering, and immutable
// afterwards.
type TermRecord struct {
	TermID    string
	Name      string
	Namespace string

	Groups map[string]GroupStat

	DirectPeptides    int // peptides annotated exactly at this term
	InheritedPeptides int // peptides annotated at a descendant only

	// Filter-stage annotations.
	ChildrenOK int // children meeting the evidence bar; 0 for leaves
	Flags      FilterFlags
}

// SupportingPeptides returns the total number of distinct peptides
// whose expansion contains this term. Direct and inherited counts
// partition this total.
func (r *TermRecord) SupportingPeptides() int {
	return r.DirectPeptides + r.InheritedPeptides
}
