package tabular

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadAnnotations reads a tabular annotation file mapping peptides to
// directly annotated term identifiers. pepCol and termCol name the
// two columns of interest; other columns are ignored. A peptide may
// carry several terms in one cell, separated by commas or semicolons,
// and may appear on several rows; the sets are merged with duplicates
// removed. A row with an empty term cell contributes nothing, leaving
// the peptide unannotated.
func ReadAnnotations(r io.Reader, pepCol, termCol string) (map[string][]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading annotation header: %w", err)
		}
		return nil, fmt.Errorf("annotation file is empty")
	}

	header := strings.Split(scanner.Text(), "\t")
	pepIdx, termIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case pepCol:
			pepIdx = i
		case termCol:
			termIdx = i
		}
	}
	if pepIdx < 0 {
		return nil, fmt.Errorf("peptide column '%s' not found in annotation header", pepCol)
	}
	if termIdx < 0 {
		return nil, fmt.Errorf("term column '%s' not found in annotation header", termCol)
	}

	out := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if pepIdx >= len(fields) {
			return nil, fmt.Errorf("line %d: row has %d fields, peptide column is %d", lineNum, len(fields), pepIdx+1)
		}
		pep := strings.TrimSpace(fields[pepIdx])
		if pep == "" {
			return nil, fmt.Errorf("line %d: empty peptide sequence", lineNum)
		}
		if termIdx >= len(fields) {
			continue
		}
		for _, term := range splitTerms(fields[termIdx]) {
			if seen[pep] == nil {
				seen[pep] = make(map[string]bool)
			}
			if seen[pep][term] {
				continue
			}
			seen[pep][term] = true
			out[pep] = append(out[pep], term)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading annotation file: %w", err)
	}
	return out, nil
}

// splitTerms splits a term cell on commas and semicolons.
func splitTerms(cell string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		part = strings.TrimSpace(part)
		if part != "" && !strings.EqualFold(part, "na") {
			out = append(out, part)
		}
	}
	return out
}
