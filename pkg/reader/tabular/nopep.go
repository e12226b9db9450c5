package tabular

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/metaproteo/termquant/pkg/core"
)

// NopepTable holds an annotation-level intensity table for runs
// without peptide data. Each row stands in for one peptide-sized unit
// of support, annotated with the row's direct terms.
type NopepTable struct {
	Rows    []core.Peptide
	Funcs   map[string][]string // second annotation set, present when funcCol was given
	Samples []string
}

// ReadNopep reads a table whose rows carry direct annotations and
// intensities but no peptide column. termCol names the annotation
// column; when funcCol is non-empty a second annotation column is read
// as well (the combined function-taxonomy mode), keyed by the row's
// synthesized identifier. Every other column is a sample column. A row
// with an empty annotation cell is kept as an unannotated unit.
func ReadNopep(r io.Reader, termCol, funcCol string) (*NopepTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		return nil, fmt.Errorf("input file is empty")
	}

	header := strings.Split(scanner.Text(), "\t")
	termIdx, funcIdx := -1, -1
	var samples []string
	var sampleIdx []int
	for i, col := range header {
		name := strings.TrimSpace(col)
		switch {
		case name == termCol:
			if termIdx >= 0 {
				return nil, fmt.Errorf("duplicate annotation column '%s'", termCol)
			}
			termIdx = i
		case funcCol != "" && name == funcCol:
			if funcIdx >= 0 {
				return nil, fmt.Errorf("duplicate annotation column '%s'", funcCol)
			}
			funcIdx = i
		default:
			samples = append(samples, name)
			sampleIdx = append(sampleIdx, i)
		}
	}
	if termIdx < 0 {
		return nil, fmt.Errorf("annotation column '%s' not found in header", termCol)
	}
	if funcCol != "" && funcIdx < 0 {
		return nil, fmt.Errorf("annotation column '%s' not found in header", funcCol)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no sample columns found in header")
	}

	out := &NopepTable{Samples: samples}
	if funcCol != "" {
		out.Funcs = make(map[string][]string)
	}
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		cell := func(i int) string {
			if i < len(fields) {
				return fields[i]
			}
			return ""
		}

		p := core.Peptide{
			ID:          fmt.Sprintf("row%d", lineNum),
			Terms:       splitTerms(cell(termIdx)),
			Intensities: make([]float64, len(samples)),
		}
		for si, fi := range sampleIdx {
			v, err := core.ParseIntensity(cell(fi))
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", lineNum, samples[si], err)
			}
			p.Intensities[si] = v
		}
		if funcCol != "" {
			if terms := splitTerms(cell(funcIdx)); len(terms) > 0 {
				out.Funcs[p.ID] = terms
			}
		}
		out.Rows = append(out.Rows, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input file: %w", err)
	}
	return out, nil
}
