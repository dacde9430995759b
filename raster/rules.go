package raster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/geoplat/vtbridge/vectortile"
)

// Rule conditionally styles features by layer name and property match.
// Empty filter fields match everything.
type Rule struct {
	Layer       string `yaml:"layer,omitempty" json:"layer,omitempty"`
	FilterProp  string `yaml:"filterProp,omitempty" json:"filterProp,omitempty"`
	FilterValue string `yaml:"filterValue,omitempty" json:"filterValue,omitempty"`
	Style       `yaml:",inline"`
}

func (r Rule) matches(f *vectortile.Feature) bool {
	if r.Layer != "" && r.Layer != f.Layer() {
		return false
	}
	if r.FilterProp == "" {
		return true
	}
	v, ok := f.Property(r.FilterProp)
	if !ok {
		return false
	}
	return fmt.Sprint(v) == r.FilterValue
}

// RulesFunc builds a StyleFunc from an ordered rule list. Features with no
// matching rule are left unpainted; an empty list falls back to
// DefaultStyle.
func RulesFunc(rules []Rule) StyleFunc {
	if len(rules) == 0 {
		return DefaultStyle
	}
	return func(f *vectortile.Feature, _ float64) []Style {
		var styles []Style
		for _, r := range rules {
			if r.matches(f) {
				styles = append(styles, r.Style)
			}
		}
		return styles
	}
}

// LoadRules reads an ordered rule list from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading style rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing style rules: %w", err)
	}
	return rules, nil
}
