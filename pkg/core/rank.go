package core

// Taxonomic rank ordering, broadest first. Depth increases toward
// more specific ranks; ranks not in this table (clades, "no rank"
// nodes) have no depth and never satisfy an at-or-above test on their
// own.
var rankDepth = map[string]int{
	"superkingdom": 0,
	"kingdom":      1,
	"phylum":       2,
	"class":        3,
	"order":        4,
	"family":       5,
	"genus":        6,
	"species":      7,
	"strain":       8,
}

// KnownRank reports whether rank is a recognized taxonomic rank name.
func KnownRank(rank string) bool {
	_, ok := rankDepth[rank]
	return ok
}

// RankAtOrAbove climbs parent edges from term i to the nearest node
// (i itself included) whose rank is at or above the target rank.
// It returns false when i is already above the target, or when no
// ranked ancestor at or above the target exists.
func (h *Hierarchy) RankAtOrAbove(i int32, target string) (int32, bool) {
	targetDepth, ok := rankDepth[target]
	if !ok {
		return 0, false
	}
	// Nodes above the target contribute nothing at target granularity.
	if d, ok := rankDepth[h.namespaces[i]]; ok && d < targetDepth {
		return 0, false
	}
	n := i
	for {
		if d, ok := rankDepth[h.namespaces[n]]; ok && d <= targetDepth {
			return n, true
		}
		parents := h.parents[n]
		if len(parents) == 0 {
			return 0, false
		}
		// Taxonomy is a tree; a single parent is the invariant here.
		n = parents[0]
	}
}
