package jobtags

import "strings"

// MarketScan is the built-in repeatable archetype for periodic market scans.
const MarketScan = "market_scan"

// ArchetypeRule recognizes a job kind by explicit tag or title keywords.
type ArchetypeRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultArchetypes are recognized when no archetype file is configured.
func DefaultArchetypes() []ArchetypeRule {
	return []ArchetypeRule{
		{Name: MarketScan, Keywords: []string{"market scan", "market-scan"}},
	}
}

// MatchArchetype returns the first archetype the job matches, or "".
// An explicit [archetype:name] tag only matches a known rule.
func MatchArchetype(rules []ArchetypeRule, title string, tags Tags) string {
	if tags.Archetype != "" {
		for _, r := range rules {
			if strings.EqualFold(r.Name, tags.Archetype) {
				return r.Name
			}
		}
		return ""
	}
	lower := strings.ToLower(title)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return r.Name
			}
		}
	}
	return ""
}

// IsMarketScan reports whether a job is a market-scan style job.
func IsMarketScan(title string, tags Tags) bool {
	return MatchArchetype(DefaultArchetypes(), title, tags) == MarketScan
}
