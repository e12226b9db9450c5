package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SampleGroups maps experimental group names to ordered sets of
// sample-column names. Group order is the order of first definition
// and is preserved through aggregation, filtering, and output.
type SampleGroups struct {
	Names   []string
	Columns map[string][]string
}

// ParseGroups parses a sample-group specification. The argument is
// either inline JSON of the form {"A":["A1","A2"],"B":["B1","B2"]} or
// the path of a tabular file with one group per line:
// name<TAB>col1,col2,...
func ParseGroups(arg string) (*SampleGroups, error) {
	if strings.HasPrefix(strings.TrimSpace(arg), "{") {
		return parseGroupsJSON(arg)
	}
	return parseGroupsFile(arg)
}

func parseGroupsJSON(arg string) (*SampleGroups, error) {
	var raw map[string][]string
	if err := json.Unmarshal([]byte(arg), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse sample groups JSON: %w", err)
	}
	// json map order is not stable; recover document key order with a
	// second token-level pass.
	dec := json.NewDecoder(strings.NewReader(arg))
	var names []string
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, fmt.Errorf("failed to parse sample groups JSON: %w", err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse sample groups JSON: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token in sample groups JSON: %v", tok)
		}
		names = append(names, name)
		var cols []string
		if err := dec.Decode(&cols); err != nil {
			return nil, fmt.Errorf("group %s: %w", name, err)
		}
	}
	sg := &SampleGroups{Names: names, Columns: raw}
	return sg, sg.validate()
}

func parseGroupsFile(path string) (*SampleGroups, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample groups file: %w", err)
	}
	defer f.Close()

	sg := &SampleGroups{Columns: make(map[string][]string)}
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 tab-separated fields (group, columns), got %d", lineNum, len(fields))
		}
		name := strings.TrimSpace(fields[0])
		if _, dup := sg.Columns[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate group %s", lineNum, name)
		}
		var cols []string
		for _, c := range strings.Split(fields[1], ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				cols = append(cols, c)
			}
		}
		sg.Names = append(sg.Names, name)
		sg.Columns[name] = cols
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading sample groups file: %w", err)
	}
	return sg, sg.validate()
}

func (g *SampleGroups) validate() error {
	if len(g.Names) == 0 {
		return &ConfigError{Field: "samps", Message: "at least one sample group is required"}
	}
	for _, name := range g.Names {
		if len(g.Columns[name]) == 0 {
			return &ConfigError{Field: "samps", Message: fmt.Sprintf("group %s has no sample columns", name)}
		}
	}
	return nil
}

// Len returns the number of groups.
func (g *SampleGroups) Len() int { return len(g.Names) }

// AllColumns returns every sample column across all groups, in group
// order, duplicates removed.
func (g *SampleGroups) AllColumns() []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range g.Names {
		for _, c := range g.Columns[name] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Resolve maps each group's column names to indexes into the given
// sample-column header. Every configured column must exist in the
// header.
func (g *SampleGroups) Resolve(header []string) (map[string][]int, error) {
	pos := make(map[string]int, len(header))
	for i, col := range header {
		pos[col] = i
	}
	out := make(map[string][]int, len(g.Names))
	for _, name := range g.Names {
		for _, c := range g.Columns[name] {
			i, ok := pos[c]
			if !ok {
				return nil, &ConfigError{Field: "samps", Message: fmt.Sprintf("group %s: column %s not found in intensity file", name, c)}
			}
			out[name] = append(out[name], i)
		}
	}
	return out, nil
}
