package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metaproteo/termquant/pkg/core"
	"github.com/metaproteo/termquant/pkg/filter"
	"github.com/metaproteo/termquant/pkg/reader/tabular"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter an expanded term table with per-group evidentiary thresholds",
	Long: `Filter the output of termquant expand, retaining terms that meet the
evidence-sufficiency, informativeness, and quantitative coverage
criteria. The retained table carries per-criterion diagnostics.

Examples:
  termquant filter --mode fn --obo go-basic.obo --samps groups.tsv \
    --expand-file expanded.tsv --min-peptides 2 --qthreshold 3 -o filtered.tsv`,
	RunE: runFilter,
}

func runFilter(cmd *cobra.Command, args []string) error {
	groups, runCfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	cfg := filter.DefaultConfig()
	if runCfg != nil {
		if err := runCfg.ApplyFilter(cfg); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("min-peptides") {
		cfg.MinPeptides = minPeptides
	}
	if cmd.Flags().Changed("min-pep-nsamp") {
		cfg.MinPepNSamp, err = filter.ParseThreshold(minPepNSamp)
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("min-children-non-leaf") {
		cfg.MinChildrenNonLeaf = minChildrenNonLeaf
	}
	if cmd.Flags().Changed("min-child-nsamp") {
		cfg.MinChildNSamp, err = filter.ParseThreshold(minChildNSamp)
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("qthreshold") {
		cfg.QThreshold = qthreshold
	}

	// Fail fast on configuration errors before touching any input.
	if err := cfg.Validate(groups.Len()); err != nil {
		return err
	}

	in, err := os.Open(expandFile)
	if err != nil {
		return fmt.Errorf("failed to open expanded table: %w", err)
	}
	defer in.Close()

	records, err := tabular.ReadRecords(in, groups)
	if err != nil {
		return err
	}

	var h *core.Hierarchy
	if mode == "taxfn" {
		h, err = pairHierarchy(records)
	} else {
		h, err = loadHierarchy()
	}
	if err != nil {
		return err
	}

	fmt.Printf("Filtering %d terms (min_peptides=%d, min_pep_nsamp=%s, min_children_non_leaf=%d, min_child_nsamp=%s, qthreshold=%d)...\n",
		len(records), cfg.MinPeptides, cfg.MinPepNSamp, cfg.MinChildrenNonLeaf, cfg.MinChildNSamp, cfg.QThreshold)

	retained, err := cfg.Apply(records, h, groups)
	if err != nil {
		return err
	}

	if err := writeOutputs(retained, groups, true); err != nil {
		return err
	}

	fmt.Printf("\nFiltering complete!\n")
	fmt.Printf("Retained: %d of %d terms\n", len(retained), len(records))
	fmt.Printf("Output: %s\n", outFile)

	return nil
}

// pairHierarchy rebuilds the flat interaction term set of a taxfn run
// from the expanded table itself. Pair terms have no parent structure,
// so every term is a leaf and the informativeness criterion is
// bypassed.
func pairHierarchy(records []*core.TermRecord) (*core.Hierarchy, error) {
	h := core.NewHierarchy()
	for _, r := range records {
		h.Add(r.TermID, r.Name, r.Namespace)
	}
	if err := h.Build(); err != nil {
		return nil, err
	}
	return h, nil
}
