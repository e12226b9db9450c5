// Package config loads the optional YAML run configuration holding
// sample groups and filter thresholds. Command-line flags take
// precedence over file values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/metaproteo/termquant/pkg/core"
	"github.com/metaproteo/termquant/pkg/filter"
)

// Config is the top-level run configuration file.
//
//	groups:
//	  A: [A1, A2]
//	  B: [B1, B2]
//	filter:
//	  min_peptides: 1
//	  min_pep_nsamp: all
//	  qthreshold: 3
type Config struct {
	Groups Groups     `yaml:"groups"`
	Filter Thresholds `yaml:"filter"`
}

// Groups preserves the group order of the YAML document, which a
// plain map would lose.
type Groups struct {
	Names   []string
	Columns map[string][]string
}

// UnmarshalYAML decodes the groups mapping while keeping key order.
func (g *Groups) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("groups must be a mapping of group name to sample columns")
	}
	g.Columns = make(map[string][]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var cols []string
		if err := node.Content[i+1].Decode(&cols); err != nil {
			return fmt.Errorf("group %s: %w", name, err)
		}
		if _, dup := g.Columns[name]; dup {
			return fmt.Errorf("duplicate group %s", name)
		}
		g.Names = append(g.Names, name)
		g.Columns[name] = cols
	}
	return nil
}

// Thresholds mirrors the filter configuration surface. Pointer fields
// distinguish "not set" from an explicit zero; the nsamp fields take
// a non-negative integer or the string "all".
type Thresholds struct {
	MinPeptides        *int    `yaml:"min_peptides"`
	MinPepNSamp        *string `yaml:"min_pep_nsamp"`
	MinChildrenNonLeaf *int    `yaml:"min_children_non_leaf"`
	MinChildNSamp      *string `yaml:"min_child_nsamp"`
	QThreshold         *int    `yaml:"qthreshold"`
}

// Load reads and parses a YAML run configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SampleGroups converts the configured groups, or nil when the file
// has none.
func (c *Config) SampleGroups() (*core.SampleGroups, error) {
	if len(c.Groups.Names) == 0 {
		return nil, nil
	}
	sg := &core.SampleGroups{Names: c.Groups.Names, Columns: c.Groups.Columns}
	for _, name := range sg.Names {
		if len(sg.Columns[name]) == 0 {
			return nil, &core.ConfigError{Field: "groups", Message: fmt.Sprintf("group %s has no sample columns", name)}
		}
	}
	return sg, nil
}

// ApplyFilter overlays the file's threshold values onto cfg, leaving
// unset fields alone.
func (c *Config) ApplyFilter(cfg *filter.Config) error {
	t := c.Filter
	if t.MinPeptides != nil {
		cfg.MinPeptides = *t.MinPeptides
	}
	if t.MinPepNSamp != nil {
		th, err := filter.ParseThreshold(*t.MinPepNSamp)
		if err != nil {
			return fmt.Errorf("min_pep_nsamp: %w", err)
		}
		cfg.MinPepNSamp = th
	}
	if t.MinChildrenNonLeaf != nil {
		cfg.MinChildrenNonLeaf = *t.MinChildrenNonLeaf
	}
	if t.MinChildNSamp != nil {
		th, err := filter.ParseThreshold(*t.MinChildNSamp)
		if err != nil {
			return fmt.Errorf("min_child_nsamp: %w", err)
		}
		cfg.MinChildNSamp = th
	}
	if t.QThreshold != nil {
		cfg.QThreshold = *t.QThreshold
	}
	return nil
}
