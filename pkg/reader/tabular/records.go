package tabular

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/metaproteo/termquant/pkg/core"
)

// ReadRecords reads an expanded term table written by the TSV writer
// back into TermRecords. Group statistics columns are located by name
// (<group>_mean, <group>_nsamp, <group>_npep) for every configured
// group; extra columns are ignored, so a previously filtered table
// with diagnostics columns can be re-read.
func ReadRecords(r io.Reader, groups *core.SampleGroups) ([]*core.TermRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading expanded table header: %w", err)
		}
		return nil, fmt.Errorf("expanded table is empty")
	}

	header := strings.Split(scanner.Text(), "\t")
	pos := make(map[string]int, len(header))
	for i, col := range header {
		pos[strings.TrimSpace(col)] = i
	}

	required := []string{"id", "name", "namespace", "n_pep_direct", "n_pep_inherit"}
	for _, g := range groups.Names {
		required = append(required, g+"_mean", g+"_nsamp", g+"_npep")
	}
	for _, col := range required {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("expanded table is missing column '%s'", col)
		}
	}

	var out []*core.TermRecord
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		get := func(col string) (string, error) {
			i := pos[col]
			if i >= len(fields) {
				return "", fmt.Errorf("line %d: row has %d fields, column %s is %d", lineNum, len(fields), col, i+1)
			}
			return strings.TrimSpace(fields[i]), nil
		}
		getInt := func(col string) (int, error) {
			s, err := get(col)
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return 0, fmt.Errorf("line %d: column %s: invalid integer '%s'", lineNum, col, s)
			}
			return n, nil
		}

		id, err := get("id")
		if err != nil {
			return nil, err
		}
		name, err := get("name")
		if err != nil {
			return nil, err
		}
		namespace, err := get("namespace")
		if err != nil {
			return nil, err
		}
		rec := &core.TermRecord{
			TermID:    id,
			Name:      name,
			Namespace: namespace,
			Groups:    make(map[string]core.GroupStat, groups.Len()),
		}
		if rec.DirectPeptides, err = getInt("n_pep_direct"); err != nil {
			return nil, err
		}
		if rec.InheritedPeptides, err = getInt("n_pep_inherit"); err != nil {
			return nil, err
		}

		for _, g := range groups.Names {
			meanStr, err := get(g + "_mean")
			if err != nil {
				return nil, err
			}
			var stat core.GroupStat
			if meanStr == "" || strings.EqualFold(meanStr, "na") || strings.EqualFold(meanStr, "nan") {
				stat.Mean = core.MissingValue()
			} else {
				stat.Mean, err = strconv.ParseFloat(meanStr, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: column %s_mean: invalid number '%s'", lineNum, g, meanStr)
				}
			}
			if stat.SampleCount, err = getInt(g + "_nsamp"); err != nil {
				return nil, err
			}
			if stat.PeptideCount, err = getInt(g + "_npep"); err != nil {
				return nil, err
			}
			rec.Groups[g] = stat
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading expanded table: %w", err)
	}
	return out, nil
}
