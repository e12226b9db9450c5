// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metaproteo/termquant/pkg/config"
	"github.com/metaproteo/termquant/pkg/core"
	"github.com/metaproteo/termquant/pkg/reader/obo"
	"github.com/metaproteo/termquant/pkg/reader/taxonomy"
)

var (
	// Flags common to expand and filter
	samps      string
	mode       string
	ontology   string
	configFile string
	oboFile    string
	slimOBO    string
	taxHier    string
	outFile    string
	outDB      string

	// Expand flags
	intFile     string
	pepColname  string
	nopep       bool
	nopepFile   string
	funcFile    string
	funcColname string
	slimDown    bool
	taxFile     string
	taxColname  string
	targetRank  string
	rankPolicy  string
	threads     int

	// Filter flags
	expandFile         string
	minPeptides        int
	minPepNSamp        string
	minChildrenNonLeaf int
	minChildNSamp      string
	qthreshold         int
)

var rootCmd = &cobra.Command{
	Use:   "termquant",
	Short: "termquant - hierarchical term quantification for metaproteomics",
	Long: `termquant quantifies functional and taxonomic terms from peptide-level
mass-spectrometry intensity data.

Peptide annotations are expanded over a term hierarchy (GO, COG, EC, or
a taxonomic lineage tree), intensity evidence is aggregated at every
ancestor term without double-counting, and the resulting term table can
be filtered with per-group evidentiary thresholds.`,
	Version: "1.0.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(filterCmd)

	for _, c := range []*cobra.Command{expandCmd, filterCmd} {
		c.Flags().StringVarP(&samps, "samps", "s", "", "Sample groups: inline JSON ({\"A\":[\"A1\",\"A2\"]}) or path to a tabular file")
		c.Flags().StringVarP(&mode, "mode", "m", "", "Analysis mode: fn (function), tax (taxonomy), or taxfn (function-taxonomy interaction) (required)")
		c.Flags().StringVar(&ontology, "ontology", "go", "Functional ontology: go, cog, or ec (fn mode)")
		c.Flags().StringVar(&configFile, "config", "", "Path to YAML run configuration (sample groups and filter thresholds)")
		c.Flags().StringVar(&oboFile, "obo", "", "Path to the OBO ontology file (fn mode)")
		c.Flags().StringVar(&slimOBO, "slim-obo", "", "Path to the slim OBO file (fn mode, with --slim-down)")
		c.Flags().StringVar(&taxHier, "tax-hierarchy", "", "Path to the tabular taxonomy file (tax mode)")
		c.Flags().StringVarP(&outFile, "outfile", "o", "", "Output TSV file (required)")
		c.Flags().StringVar(&outDB, "out-db", "", "Optional SQLite database to also write the term table to")
		c.MarkFlagRequired("mode")
		c.MarkFlagRequired("outfile")
	}

	// Expand command flags
	expandCmd.Flags().StringVarP(&intFile, "int-file", "i", "", "Path to the tabular peptide intensity file")
	expandCmd.Flags().StringVar(&pepColname, "pep-colname", "peptide", "Name of the peptide sequence column")
	expandCmd.Flags().BoolVar(&nopep, "nopep", false, "Input has no peptide column; annotations and intensities are in one file")
	expandCmd.Flags().StringVar(&nopepFile, "nopep-file", "", "Path to the combined annotation and intensity file (with --nopep)")
	expandCmd.Flags().StringVarP(&funcFile, "func-file", "f", "", "Path to the tabular functional annotation file (fn mode)")
	expandCmd.Flags().StringVar(&funcColname, "func-colname", "", "Name of the functional term column (fn mode)")
	expandCmd.Flags().BoolVar(&slimDown, "slim-down", false, "Map expanded terms onto the slim ontology; terms without a slim mapping are dropped")
	expandCmd.Flags().StringVarP(&taxFile, "tax-file", "t", "", "Path to the tabular taxonomy annotation file (tax mode)")
	expandCmd.Flags().StringVar(&taxColname, "tax-colname", "", "Name of the taxonomy column (tax mode)")
	expandCmd.Flags().StringVar(&targetRank, "target-rank", "", "Collapse taxonomy assignments to this rank before expansion (e.g. genus)")
	expandCmd.Flags().StringVar(&rankPolicy, "rank-policy", "nearest", "Rank collapse policy: nearest or exact")
	expandCmd.Flags().IntVar(&threads, "threads", 0, "Number of worker threads (0 = all CPUs)")

	// Filter command flags
	filterCmd.Flags().StringVar(&expandFile, "expand-file", "", "Output from termquant expand (required)")
	filterCmd.Flags().IntVar(&minPeptides, "min-peptides", 0, "Minimum distinct supporting peptides per group")
	filterCmd.Flags().StringVar(&minPepNSamp, "min-pep-nsamp", "all", "Groups that must meet min-peptides: a non-negative integer or 'all'")
	filterCmd.Flags().IntVar(&minChildrenNonLeaf, "min-children-non-leaf", 0, "Minimum evidence-qualified children for non-leaf terms")
	filterCmd.Flags().StringVar(&minChildNSamp, "min-child-nsamp", "all", "Groups in which a child must meet the bar: a non-negative integer or 'all'")
	filterCmd.Flags().IntVar(&qthreshold, "qthreshold", 3, "Minimum non-missing samples required in at least one group")
	filterCmd.MarkFlagRequired("expand-file")
}

// loadRunConfig reads the optional YAML config and resolves the
// sample groups, preferring --samps over the config file.
func loadRunConfig() (*core.SampleGroups, *config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, nil, err
		}
	}

	if samps != "" {
		groups, err := core.ParseGroups(samps)
		if err != nil {
			return nil, nil, err
		}
		return groups, cfg, nil
	}
	if cfg != nil {
		groups, err := cfg.SampleGroups()
		if err != nil {
			return nil, nil, err
		}
		if groups != nil {
			return groups, cfg, nil
		}
	}
	return nil, nil, fmt.Errorf("sample groups are required: provide --samps or a config file with a groups section")
}

// loadHierarchy loads the mode-appropriate term hierarchy. The taxfn
// mode loads both hierarchies itself and is handled by its callers.
func loadHierarchy() (*core.Hierarchy, error) {
	switch mode {
	case "fn":
		return loadFnHierarchy()
	case "tax":
		return loadTaxHierarchy()
	default:
		return nil, fmt.Errorf("invalid mode '%s', must be fn, tax, or taxfn", mode)
	}
}

// loadFnHierarchy reads the functional ontology, applying the slim
// subset when requested.
func loadFnHierarchy() (*core.Hierarchy, error) {
	if ontology != "go" && ontology != "cog" && ontology != "ec" {
		return nil, fmt.Errorf("invalid ontology '%s', must be go, cog, or ec", ontology)
	}
	if oboFile == "" {
		return nil, fmt.Errorf("%s mode requires --obo", mode)
	}
	f, err := os.Open(oboFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open ontology file: %w", err)
	}
	defer f.Close()
	h, err := obo.Read(f)
	if err != nil {
		return nil, err
	}
	if slimDown || slimOBO != "" {
		if slimOBO == "" {
			return nil, fmt.Errorf("--slim-down requires --slim-obo")
		}
		sf, err := os.Open(slimOBO)
		if err != nil {
			return nil, fmt.Errorf("failed to open slim ontology file: %w", err)
		}
		defer sf.Close()
		ids, err := obo.ReadSlimIDs(sf)
		if err != nil {
			return nil, err
		}
		h.SetSlim(ids)
	}
	return h, nil
}

// loadTaxHierarchy reads the tabular taxonomy tree.
func loadTaxHierarchy() (*core.Hierarchy, error) {
	if taxHier == "" {
		return nil, fmt.Errorf("%s mode requires --tax-hierarchy", mode)
	}
	f, err := os.Open(taxHier)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy file: %w", err)
	}
	defer f.Close()
	return taxonomy.Read(f)
}
