package economy

import "strings"

// DefaultTreasury is the account awards are paid from and penalties paid into.
const DefaultTreasury = "treasury"

// AgentSet classifies accounts as agents or humans from configuration. When
// Agents is empty every account that is neither listed as human nor the
// treasury counts as an agent.
type AgentSet struct {
	treasury string
	agents   map[string]struct{}
	humans   map[string]struct{}
}

// NewAgentSet builds an AgentSet from explicit id lists.
func NewAgentSet(treasury string, agents, humans []string) *AgentSet {
	if strings.TrimSpace(treasury) == "" {
		treasury = DefaultTreasury
	}
	return &AgentSet{
		treasury: treasury,
		agents:   toSet(agents),
		humans:   toSet(humans),
	}
}

// IsAgent implements core.AgentDirectory.
func (s *AgentSet) IsAgent(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || id == s.treasury {
		return false
	}
	if _, human := s.humans[id]; human {
		return false
	}
	if len(s.agents) == 0 {
		return true
	}
	_, ok := s.agents[id]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
