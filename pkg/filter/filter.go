// Package filter prunes an aggregated term table with per-group
// evidentiary thresholds while leaving the hierarchy itself intact.
package filter

import (
	"fmt"
	"strconv"

	"github.com/metaproteo/termquant/pkg/core"
)

// Threshold is a per-group count requirement: either a literal number
// of groups or the sentinel "all", meaning every configured group
// must meet the bar. The sentinel is resolved against the group count
// once, at validation time.
type Threshold struct {
	All bool
	N   int
}

// ParseThreshold parses a threshold value: a non-negative integer or
// the string "all".
func ParseThreshold(s string) (Threshold, error) {
	if s == "all" {
		return Threshold{All: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Threshold{}, fmt.Errorf("invalid threshold '%s', must be a non-negative integer or 'all'", s)
	}
	return Threshold{N: n}, nil
}

// Met reports whether a count of qualifying groups satisfies the
// threshold given the total number of configured groups.
func (t Threshold) Met(count, ngroups int) bool {
	if t.All {
		return count >= ngroups
	}
	return count >= t.N
}

// String renders the threshold the way it was configured.
func (t Threshold) String() string {
	if t.All {
		return "all"
	}
	return strconv.Itoa(t.N)
}

// Config holds the filtering thresholds. All criteria are evaluated
// independently and combined by logical AND.
type Config struct {
	// MinPeptides is the distinct-peptide support a term needs within
	// a group for that group to qualify.
	MinPeptides int
	// MinPepNSamp is the number of groups that must qualify for the
	// evidence-sufficiency criterion.
	MinPepNSamp Threshold
	// MinChildrenNonLeaf is the number of evidence-qualified children
	// a non-leaf term needs. Leaves bypass this criterion.
	MinChildrenNonLeaf int
	// MinChildNSamp is the number of groups in which a child must
	// meet the evidence bar to count as qualified.
	MinChildNSamp Threshold
	// QThreshold is the number of non-missing samples at least one
	// group must have for the term to be quantifiable.
	QThreshold int
}

// DefaultConfig returns the default thresholds: no peptide minimum,
// "all" group sentinels, and a quantification floor of 3 samples.
func DefaultConfig() *Config {
	return &Config{
		MinPepNSamp:   Threshold{All: true},
		MinChildNSamp: Threshold{All: true},
		QThreshold:    3,
	}
}

// Validate checks the configuration against the configured group
// count. The "all" sentinel with zero groups is a configuration
// error, surfaced before any filtering work.
func (c *Config) Validate(ngroups int) error {
	if ngroups == 0 {
		if c.MinPepNSamp.All {
			return &core.ConfigError{Field: "min_pep_nsamp", Message: "'all' requires at least one sample group"}
		}
		if c.MinChildNSamp.All {
			return &core.ConfigError{Field: "min_child_nsamp", Message: "'all' requires at least one sample group"}
		}
	}
	if c.MinPeptides < 0 {
		return &core.ConfigError{Field: "min_peptides", Message: "must be non-negative"}
	}
	if c.MinChildrenNonLeaf < 0 {
		return &core.ConfigError{Field: "min_children_non_leaf", Message: "must be non-negative"}
	}
	if c.QThreshold < 0 {
		return &core.ConfigError{Field: "qthreshold", Message: "must be non-negative"}
	}
	return nil
}

// Apply evaluates every record against the configured criteria and
// returns the retained subset. All records, retained or not, are
// annotated with per-criterion flags and the qualified-children
// count. The hierarchy is only consulted, never modified; a retained
// term's children still refer to the full, unfiltered term set.
func (c *Config) Apply(records []*core.TermRecord, h *core.Hierarchy, groups *core.SampleGroups) ([]*core.TermRecord, error) {
	if err := c.Validate(groups.Len()); err != nil {
		return nil, err
	}

	byID := make(map[string]*core.TermRecord, len(records))
	for _, r := range records {
		byID[r.TermID] = r
	}

	var retained []*core.TermRecord
	for _, r := range records {
		i, ok := h.Index(r.TermID)
		if !ok {
			return nil, fmt.Errorf("term %s from expanded table not found in hierarchy", r.TermID)
		}

		r.Flags.Evidence = c.MinPepNSamp.Met(c.groupsWithSupport(r, groups), groups.Len())
		r.Flags.Coverage = c.coverage(r, groups)

		if h.IsLeaf(i) {
			// Structural bypass: the informativeness criterion does
			// not apply to terms with no children in the hierarchy.
			r.ChildrenOK = 0
			r.Flags.Informative = true
		} else {
			r.ChildrenOK = c.qualifiedChildren(i, h, byID, groups)
			r.Flags.Informative = r.ChildrenOK >= c.MinChildrenNonLeaf
		}

		if r.Flags.Pass() {
			retained = append(retained, r)
		}
	}
	return retained, nil
}

// groupsWithSupport counts the groups in which a term's distinct
// supporting peptides meet MinPeptides.
func (c *Config) groupsWithSupport(r *core.TermRecord, groups *core.SampleGroups) int {
	n := 0
	for _, g := range groups.Names {
		if r.Groups[g].PeptideCount >= c.MinPeptides {
			n++
		}
	}
	return n
}

// coverage reports whether at least one group has enough non-missing
// samples to quantify the term.
func (c *Config) coverage(r *core.TermRecord, groups *core.SampleGroups) bool {
	for _, g := range groups.Names {
		if r.Groups[g].SampleCount >= c.QThreshold {
			return true
		}
	}
	return false
}

// qualifiedChildren counts the children of term i that meet the
// evidence bar in enough groups. A child absent from the aggregated
// table has zero support everywhere.
func (c *Config) qualifiedChildren(i int32, h *core.Hierarchy, byID map[string]*core.TermRecord, groups *core.SampleGroups) int {
	n := 0
	for _, ch := range h.Children(i) {
		rec := byID[h.ID(ch)]
		qualifying := 0
		for _, g := range groups.Names {
			support := 0
			if rec != nil {
				support = rec.Groups[g].PeptideCount
			}
			if support >= c.MinPeptides {
				qualifying++
			}
		}
		if c.MinChildNSamp.Met(qualifying, groups.Len()) {
			n++
		}
	}
	return n
}
