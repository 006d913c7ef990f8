package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentSet_IsAgent(t *testing.T) {
	open := NewAgentSet("", nil, []string{"alice"})
	listed := NewAgentSet("bank", []string{"bot-1", " bot-2 "}, []string{"bot-2"})

	tests := []struct {
		name string
		set  *AgentSet
		id   string
		want bool
	}{
		{"unlisted counts as agent", open, "bot-9", true},
		{"human excluded", open, "alice", false},
		{"default treasury excluded", open, DefaultTreasury, false},
		{"empty id", open, "", false},
		{"explicit agent", listed, "bot-1", true},
		{"human wins over agent list", listed, "bot-2", false},
		{"not in explicit list", listed, "bot-3", false},
		{"custom treasury excluded", listed, "bank", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.IsAgent(tt.id))
		})
	}
}
