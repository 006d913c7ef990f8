package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/target/workmarket/internal/domain/jobtags"
)

type archetypeFile struct {
	Archetypes []jobtags.ArchetypeRule `yaml:"archetypes"`
}

// LoadArchetypes reads repeatable job archetypes from a YAML file of the form
//
//	archetypes:
//	  - name: market_scan
//	    keywords: ["market scan"]
//
// An empty path returns the built-in archetypes.
func LoadArchetypes(path string) ([]jobtags.ArchetypeRule, error) {
	if strings.TrimSpace(path) == "" {
		return jobtags.DefaultArchetypes(), nil
	}
	raw, err := os.ReadFile(path) // #nosec G304 - operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read archetypes file: %w", err)
	}
	return ParseArchetypes(raw)
}

// ParseArchetypes decodes archetype YAML. Rules without a name are rejected.
func ParseArchetypes(raw []byte) ([]jobtags.ArchetypeRule, error) {
	var f archetypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}
	out := make([]jobtags.ArchetypeRule, 0, len(f.Archetypes))
	for i, r := range f.Archetypes {
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return nil, fmt.Errorf("archetype %d: name is required", i)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return jobtags.DefaultArchetypes(), nil
	}
	return out, nil
}
