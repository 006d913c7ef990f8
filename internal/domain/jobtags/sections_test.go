package jobtags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSection_Bullets(t *testing.T) {
	body := "Do the thing.\n\n## Acceptance criteria\n- returns 200\n* logs the request\n1. has tests\n\nNotes: none"

	sec, ok := FindSection(body, "acceptance criteria")
	require.True(t, ok)
	assert.Equal(t, []string{"returns 200", "logs the request", "has tests"}, sec.Bullets())
}

func TestFindSection_InlineAndColonHeading(t *testing.T) {
	sec, ok := FindSection("Evidence: X", "evidence")
	require.True(t, ok)
	assert.Equal(t, "X", sec.Inline)
	assert.Equal(t, "X", sec.Text())

	sec, ok = FindSection("**Acceptance criteria:**\n- X\n- Y\nEvidence:\n- X", "Acceptance criteria")
	require.True(t, ok)
	assert.Equal(t, []string{"X", "Y"}, sec.Bullets())
}

func TestFindSection_BulletsMayContainColons(t *testing.T) {
	sec, ok := FindSection("Acceptance criteria:\n- status: green\n- url: present\nOther:\n- z", "acceptance criteria")
	require.True(t, ok)
	assert.Equal(t, []string{"status: green", "url: present"}, sec.Bullets())
}

func TestFindSection_Missing(t *testing.T) {
	_, ok := FindSection("Just do it [verifier:json_list]", "acceptance criteria")
	assert.False(t, ok)
}
