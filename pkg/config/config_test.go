package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metaproteo/termquant/pkg/filter"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
groups:
  Control: [C1, C2, C3]
  Treated: [T1, T2]
filter:
  min_peptides: 2
  min_pep_nsamp: "1"
  qthreshold: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	groups, err := cfg.SampleGroups()
	if err != nil {
		t.Fatalf("SampleGroups() error = %v", err)
	}
	if groups.Names[0] != "Control" || groups.Names[1] != "Treated" {
		t.Errorf("group order = %v, want [Control Treated]", groups.Names)
	}
	if len(groups.Columns["Control"]) != 3 {
		t.Errorf("Control has %d columns, want 3", len(groups.Columns["Control"]))
	}

	fc := filter.DefaultConfig()
	if err := cfg.ApplyFilter(fc); err != nil {
		t.Fatalf("ApplyFilter() error = %v", err)
	}
	if fc.MinPeptides != 2 {
		t.Errorf("MinPeptides = %d, want 2", fc.MinPeptides)
	}
	if fc.MinPepNSamp.All || fc.MinPepNSamp.N != 1 {
		t.Errorf("MinPepNSamp = %+v, want Exact(1)", fc.MinPepNSamp)
	}
	if !fc.MinChildNSamp.All {
		t.Error("MinChildNSamp should keep its 'all' default when unset")
	}
	if fc.QThreshold != 4 {
		t.Errorf("QThreshold = %d, want 4", fc.QThreshold)
	}
}

func TestLoadNoGroups(t *testing.T) {
	path := writeConfig(t, "filter:\n  qthreshold: 1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	groups, err := cfg.SampleGroups()
	if err != nil {
		t.Fatalf("SampleGroups() error = %v", err)
	}
	if groups != nil {
		t.Errorf("SampleGroups() = %v, want nil when the file has none", groups)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "groups: ["},
		{"groups not a mapping", "groups: [A, B]\n"},
		{"empty group", "groups:\n  A: []\n"},
		{"bad threshold", "groups:\n  A: [A1]\nfilter:\n  min_pep_nsamp: sometimes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			cfg, err := Load(path)
			if err != nil {
				return // rejected at parse time
			}
			if _, err := cfg.SampleGroups(); err != nil {
				return // rejected at group validation
			}
			if err := cfg.ApplyFilter(filter.DefaultConfig()); err != nil {
				return // rejected at threshold parse
			}
			t.Error("expected an error somewhere, got none")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
