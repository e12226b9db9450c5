// Package tabular provides streaming readers for the tab-separated
// inputs and intermediate tables: peptide intensities, peptide
// annotations, and expanded term tables.
package tabular

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/metaproteo/termquant/pkg/core"
)

// IntensityReader provides streaming access to a tabular intensity
// file: one header line naming the peptide column and the sample
// columns, then one row per peptide. Missing values may be written as
// empty, NA, or NaN.
type IntensityReader struct {
	scanner *bufio.Scanner
	pepCol  string
	lineNum int

	samples []string // sample columns in file order
	pepIdx  int
	colIdx  []int // field index per sample column

	current *core.Peptide
	err     error
}

// NewIntensityReader creates a reader over r. pepCol names the
// peptide-sequence column; every other header column is treated as a
// sample column. The header is read eagerly so Samples is available
// before the first Next.
func NewIntensityReader(r io.Reader, pepCol string) (*IntensityReader, error) {
	scanner := bufio.NewScanner(r)
	// Wide sample tables can exceed the default token size.
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	ir := &IntensityReader{
		scanner: scanner,
		pepCol:  pepCol,
		pepIdx:  -1,
	}
	if !ir.scanner.Scan() {
		if err := ir.scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading intensity header: %w", err)
		}
		return nil, fmt.Errorf("intensity file is empty")
	}
	ir.lineNum = 1
	header := strings.Split(ir.scanner.Text(), "\t")
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == pepCol {
			if ir.pepIdx >= 0 {
				return nil, fmt.Errorf("duplicate peptide column '%s' in intensity header", pepCol)
			}
			ir.pepIdx = i
			continue
		}
		ir.samples = append(ir.samples, col)
		ir.colIdx = append(ir.colIdx, i)
	}
	if ir.pepIdx < 0 {
		return nil, fmt.Errorf("peptide column '%s' not found in intensity header", pepCol)
	}
	if len(ir.samples) == 0 {
		return nil, fmt.Errorf("intensity file has no sample columns")
	}
	return ir, nil
}

// Samples returns the sample-column names in file order. Peptide
// intensity vectors are aligned to this order.
func (r *IntensityReader) Samples() []string {
	return r.samples
}

// Next advances to the next peptide row. Returns false at end of
// input or on error.
func (r *IntensityReader) Next() bool {
	r.current = nil
	for r.scanner.Scan() {
		r.lineNum++
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, err := r.parseRow(line)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.lineNum, err)
			return false
		}
		r.current = p
		return true
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
	}
	return false
}

// Peptide returns the current peptide row.
func (r *IntensityReader) Peptide() *core.Peptide {
	return r.current
}

// Err returns any error encountered during reading.
func (r *IntensityReader) Err() error {
	return r.err
}

func (r *IntensityReader) parseRow(line string) (*core.Peptide, error) {
	fields := strings.Split(line, "\t")
	if r.pepIdx >= len(fields) {
		return nil, fmt.Errorf("row has %d fields, peptide column is %d", len(fields), r.pepIdx+1)
	}
	p := &core.Peptide{
		ID:          strings.TrimSpace(fields[r.pepIdx]),
		Intensities: make([]float64, len(r.samples)),
	}
	if p.ID == "" {
		return nil, fmt.Errorf("empty peptide sequence")
	}
	for i, fi := range r.colIdx {
		if fi >= len(fields) {
			p.Intensities[i] = core.MissingValue()
			continue
		}
		v, err := core.ParseIntensity(fields[fi])
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", r.samples[i], err)
		}
		p.Intensities[i] = v
	}
	return p, nil
}
