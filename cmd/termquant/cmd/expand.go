package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metaproteo/termquant/pkg/core"
	"github.com/metaproteo/termquant/pkg/expand"
	"github.com/metaproteo/termquant/pkg/reader/tabular"
	"github.com/metaproteo/termquant/pkg/writer/sqlite"
	"github.com/metaproteo/termquant/pkg/writer/tsv"
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand peptide annotations over the term hierarchy and aggregate intensities",
	Long: `Expand each peptide's direct annotations to every ancestor term and
aggregate intensity evidence at every term.

Examples:
  # Functional mode with GO terms
  termquant expand --mode fn --obo go-basic.obo --samps '{"A":["A1","A2"],"B":["B1","B2"]}' \
    --int-file intensities.tsv --func-file func.tsv --func-colname go_term -o expanded.tsv

  # Taxonomy mode collapsed to genus
  termquant expand --mode tax --tax-hierarchy taxa.tsv --samps groups.tsv \
    --int-file intensities.tsv --tax-file tax.tsv --tax-colname taxon_id \
    --target-rank genus -o expanded.tsv

  # Function-taxonomy interaction, quantified per (genus, GO term) pair
  termquant expand --mode taxfn --obo go-basic.obo --tax-hierarchy taxa.tsv \
    --samps groups.tsv --int-file intensities.tsv \
    --func-file func.tsv --func-colname go_term \
    --tax-file tax.tsv --tax-colname taxon_id -o expanded.tsv`,
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	groups, _, err := loadRunConfig()
	if err != nil {
		return err
	}

	if mode == "taxfn" {
		return runExpandTaxfn(groups)
	}

	if msg := ignoredRankFlags(mode, targetRank, cmd.Flags().Changed("rank-policy")); msg != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}

	h, err := loadHierarchy()
	if err != nil {
		return err
	}

	exp := &expand.Expander{H: h, SlimDown: slimDown}
	if mode == "tax" && targetRank != "" {
		if !core.KnownRank(targetRank) {
			return fmt.Errorf("unknown target rank '%s'", targetRank)
		}
		exp.TargetRank = targetRank
		exp.Policy, err = expand.ParseRankPolicy(rankPolicy)
		if err != nil {
			return err
		}
	}

	peptides, samples, err := loadPeptides()
	if err != nil {
		return err
	}

	cols, err := groups.Resolve(samples)
	if err != nil {
		return err
	}

	fmt.Printf("Expanding %d peptides over %d terms (%s mode)...\n", len(peptides), h.Len(), mode)

	records, err := expand.Run(context.Background(), exp, peptides, groups, cols, len(samples), threads)
	if err != nil {
		return err
	}

	if err := writeOutputs(records, groups, false); err != nil {
		return err
	}

	fmt.Printf("\nExpansion complete!\n")
	fmt.Printf("Peptides: %d (%d unannotated)\n", len(peptides), exp.Unannotated())
	if slimDown {
		fmt.Printf("Assignments dropped by slim mapping: %d\n", exp.SlimDropped())
	}
	if exp.TargetRank != "" {
		fmt.Printf("Annotations skipped by rank collapse: %d\n", exp.RankSkipped())
	}
	fmt.Printf("Terms quantified: %d\n", len(records))
	fmt.Printf("Output: %s\n", outFile)

	return nil
}

// runExpandTaxfn quantifies (taxon, function) interaction terms: each
// peptide's taxonomy annotations are collapsed to the target rank
// (genus unless --target-rank says otherwise) and crossed with its
// direct function annotations.
func runExpandTaxfn(groups *core.SampleGroups) error {
	if slimDown {
		return fmt.Errorf("--slim-down applies to fn mode only")
	}

	funcH, err := loadFnHierarchy()
	if err != nil {
		return err
	}
	taxH, err := loadTaxHierarchy()
	if err != nil {
		return err
	}

	rank := targetRank
	if rank == "" {
		rank = "genus"
	}
	if !core.KnownRank(rank) {
		return fmt.Errorf("unknown target rank '%s'", rank)
	}
	policy, err := expand.ParseRankPolicy(rankPolicy)
	if err != nil {
		return err
	}

	var peptides []core.Peptide
	var funcs map[string][]string
	var samples []string
	if nopep {
		if nopepFile == "" {
			return fmt.Errorf("--nopep requires --nopep-file")
		}
		if taxColname == "" || funcColname == "" {
			return fmt.Errorf("taxfn mode requires --tax-colname and --func-colname")
		}
		f, err := os.Open(nopepFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		table, err := tabular.ReadNopep(f, taxColname, funcColname)
		if err != nil {
			return err
		}
		peptides, funcs, samples = table.Rows, table.Funcs, table.Samples
	} else {
		funcs, err = readAnnotationFile(funcFile, funcColname, "func")
		if err != nil {
			return err
		}
		taxAnnots, err := readAnnotationFile(taxFile, taxColname, "tax")
		if err != nil {
			return err
		}
		peptides, samples, err = readIntensities(taxAnnots)
		if err != nil {
			return err
		}
	}

	cols, err := groups.Resolve(samples)
	if err != nil {
		return err
	}

	fmt.Printf("Expanding %d peptides into (%s, function) interaction terms...\n", len(peptides), rank)

	pe := &expand.PairExpander{Tax: taxH, Func: funcH, TargetRank: rank, Policy: policy}
	pairH, assigns, err := pe.Pairs(peptides, funcs)
	if err != nil {
		return err
	}

	agg := expand.NewAggregator(pairH, groups, cols, len(samples))
	for i := range peptides {
		agg.Add(&peptides[i], assigns[i])
	}
	records := agg.Records()

	if err := writeOutputs(records, groups, false); err != nil {
		return err
	}

	fmt.Printf("\nExpansion complete!\n")
	fmt.Printf("Peptides: %d (%d unannotated)\n", len(peptides), pe.Unannotated())
	fmt.Printf("Annotations skipped by rank collapse: %d\n", pe.RankSkipped())
	fmt.Printf("Interaction terms quantified: %d\n", len(records))
	fmt.Printf("Output: %s\n", outFile)

	return nil
}

// ignoredRankFlags reports rank collapse flags that have no effect in
// the selected mode, so a misconfigured run is visible.
func ignoredRankFlags(mode, targetRank string, policyChanged bool) string {
	if mode != "fn" {
		return ""
	}
	if targetRank != "" || policyChanged {
		return "--target-rank and --rank-policy apply to taxonomy annotations and are ignored in fn mode"
	}
	return ""
}

// loadPeptides reads the intensity input into peptides with their
// direct annotations attached, and returns the sample column names.
// With --nopep the single combined file is read instead of the
// intensity and annotation pair.
func loadPeptides() ([]core.Peptide, []string, error) {
	if nopep {
		if nopepFile == "" {
			return nil, nil, fmt.Errorf("--nopep requires --nopep-file")
		}
		col, err := annotationColname()
		if err != nil {
			return nil, nil, err
		}
		f, err := os.Open(nopepFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		table, err := tabular.ReadNopep(f, col, "")
		if err != nil {
			return nil, nil, err
		}
		return table.Rows, table.Samples, nil
	}

	annotations, err := loadAnnotations()
	if err != nil {
		return nil, nil, err
	}
	return readIntensities(annotations)
}

// readIntensities streams the peptide intensity file, attaching each
// peptide's direct annotations from the given map.
func readIntensities(annotations map[string][]string) ([]core.Peptide, []string, error) {
	if intFile == "" {
		return nil, nil, fmt.Errorf("expand requires --int-file (or --nopep with --nopep-file)")
	}
	f, err := os.Open(intFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open intensity file: %w", err)
	}
	defer f.Close()

	reader, err := tabular.NewIntensityReader(f, pepColname)
	if err != nil {
		return nil, nil, err
	}
	var peptides []core.Peptide
	for reader.Next() {
		p := reader.Peptide()
		p.Terms = annotations[p.ID]
		peptides = append(peptides, *p)
	}
	if err := reader.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading intensity file: %w", err)
	}
	return peptides, reader.Samples(), nil
}

// annotationColname returns the mode-appropriate annotation column.
func annotationColname() (string, error) {
	switch mode {
	case "fn":
		if funcColname == "" {
			return "", fmt.Errorf("fn mode requires --func-colname")
		}
		return funcColname, nil
	case "tax":
		if taxColname == "" {
			return "", fmt.Errorf("tax mode requires --tax-colname")
		}
		return taxColname, nil
	default:
		return "", fmt.Errorf("invalid mode '%s', must be fn, tax, or taxfn", mode)
	}
}

// loadAnnotations reads the mode-appropriate annotation file into a
// peptide -> direct terms map.
func loadAnnotations() (map[string][]string, error) {
	switch mode {
	case "fn":
		return readAnnotationFile(funcFile, funcColname, "func")
	case "tax":
		return readAnnotationFile(taxFile, taxColname, "tax")
	default:
		return nil, fmt.Errorf("invalid mode '%s', must be fn, tax, or taxfn", mode)
	}
}

// readAnnotationFile reads one annotation file; what names the flag
// family ("func" or "tax") for error messages.
func readAnnotationFile(path, col, what string) (map[string][]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%s mode requires --%s-file", mode, what)
	}
	if col == "" {
		return nil, fmt.Errorf("%s mode requires --%s-colname", mode, what)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation file: %w", err)
	}
	defer f.Close()
	return tabular.ReadAnnotations(f, pepColname, col)
}

// writeOutputs writes the term table as TSV and, when requested, to a
// SQLite database. Outputs are opened only after the whole table has
// been computed, so an aborted run leaves no partial file behind.
func writeOutputs(records []*core.TermRecord, groups *core.SampleGroups, diagnostics bool) error {
	out, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := tsv.WriteAll(out, groups, diagnostics, records); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	if outDB == "" {
		return nil
	}
	db, err := sqlite.NewWriter(outDB, groups)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	for _, r := range records {
		if err := db.WriteRecord(r); err != nil {
			db.Close()
			return err
		}
	}
	if err := db.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	return nil
}
