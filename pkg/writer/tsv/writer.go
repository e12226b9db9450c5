// Package tsv writes aggregated term tables as tab-separated files.
// The column layout is shared with the expanded-table reader in
// pkg/reader/tabular: id, name, namespace, then mean/nsamp/npep per
// sample group, then the direct and inherited peptide counts. Filter
// output appends the qualified-children count and per-criterion
// flags.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/metaproteo/termquant/pkg/core"
)

// MissingToken is written for a group mean with no evidence.
const MissingToken = "NA"

// Writer writes TermRecords as TSV rows.
type Writer struct {
	w           *bufio.Writer
	groups      *core.SampleGroups
	diagnostics bool
	wroteHeader bool
}

// NewWriter creates a TSV writer for the given sample groups. When
// diagnostics is true, filter-stage columns (children count and
// per-criterion pass flags) are included.
func NewWriter(w io.Writer, groups *core.SampleGroups, diagnostics bool) *Writer {
	return &Writer{
		w:           bufio.NewWriter(w),
		groups:      groups,
		diagnostics: diagnostics,
	}
}

// WriteRecord writes one record, emitting the header first if needed.
func (w *Writer) WriteRecord(r *core.TermRecord) error {
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}

	fields := []string{r.TermID, r.Name, r.Namespace}
	for _, g := range w.groups.Names {
		stat := r.Groups[g]
		fields = append(fields,
			formatMean(stat.Mean),
			strconv.Itoa(stat.SampleCount),
			strconv.Itoa(stat.PeptideCount),
		)
	}
	fields = append(fields,
		strconv.Itoa(r.DirectPeptides),
		strconv.Itoa(r.InheritedPeptides),
	)
	if w.diagnostics {
		fields = append(fields,
			strconv.Itoa(r.ChildrenOK),
			formatBool(r.Flags.Evidence),
			formatBool(r.Flags.Informative),
			formatBool(r.Flags.Coverage),
		)
	}

	if _, err := w.w.WriteString(strings.Join(fields, "\t")); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) writeHeader() error {
	cols := []string{"id", "name", "namespace"}
	for _, g := range w.groups.Names {
		cols = append(cols, g+"_mean", g+"_nsamp", g+"_npep")
	}
	cols = append(cols, "n_pep_direct", "n_pep_inherit")
	if w.diagnostics {
		cols = append(cols, "n_children_ok", "evidence_pass", "informative_pass", "coverage_pass")
	}
	if _, err := w.w.WriteString(strings.Join(cols, "\t")); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.wroteHeader = true
	return nil
}

// Flush writes any buffered output. Must be called after the last
// record.
func (w *Writer) Flush() error {
	if !w.wroteHeader {
		// An empty result still gets a header so downstream tools see
		// the column layout.
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

func formatMean(v float64) string {
	if core.Missing(v) {
		return MissingToken
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// WriteAll writes every record followed by a flush.
func WriteAll(out io.Writer, groups *core.SampleGroups, diagnostics bool, records []*core.TermRecord) error {
	w := NewWriter(out, groups, diagnostics)
	for _, r := range records {
		if err := w.WriteRecord(r); err != nil {
			return fmt.Errorf("failed to write term %s: %w", r.TermID, err)
		}
	}
	return w.Flush()
}
