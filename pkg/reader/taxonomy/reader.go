// Package taxonomy reads tabular taxonomic lineage files into the
// core term hierarchy.
package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/metaproteo/termquant/pkg/core"
)

// Read parses a tab-separated taxonomy file into a built hierarchy.
// The header must contain the columns id, parent_id, rank, and name.
// Root nodes have an empty parent_id or one equal to their own id
// (the NCBI convention for the root node).
func Read(r io.Reader) (*core.Hierarchy, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading taxonomy header: %w", err)
		}
		return nil, fmt.Errorf("taxonomy file is empty")
	}

	pos := map[string]int{"id": -1, "parent_id": -1, "rank": -1, "name": -1}
	for i, col := range strings.Split(scanner.Text(), "\t") {
		col = strings.TrimSpace(col)
		if _, ok := pos[col]; ok {
			pos[col] = i
		}
	}
	for col, i := range pos {
		if i < 0 {
			return nil, fmt.Errorf("taxonomy file is missing column '%s'", col)
		}
	}

	h := core.NewHierarchy()
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		get := func(col string) string {
			i := pos[col]
			if i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		id := get("id")
		if id == "" {
			return nil, fmt.Errorf("line %d: empty taxon id", lineNum)
		}
		parent := get("parent_id")
		if parent == "" || parent == id {
			h.Add(id, get("name"), get("rank"))
		} else {
			h.Add(id, get("name"), get("rank"), parent)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading taxonomy file: %w", err)
	}

	if err := h.Build(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}
	return h, nil
}
