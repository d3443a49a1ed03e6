package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSingleTextPartCollapses(t *testing.T) {
	wire := normalizeMessages([]ChatMessage{
		{Role: "user", Parts: []ContentPart{{Type: "text", Text: "hello"}}},
	})
	require.Len(t, wire, 1)
	assert.Equal(t, "hello", wire[0].Content)
}

func TestNormalizeMultiPartStaysStructured(t *testing.T) {
	parts := []ContentPart{
		{Type: "text", Text: "first"},
		{Type: "text", Text: "second"},
	}
	wire := normalizeMessages([]ChatMessage{{Role: "user", Parts: parts}})
	require.Len(t, wire, 1)
	assert.Equal(t, parts, wire[0].Content)
}

func TestNormalizeToolRoleFlattensToUserText(t *testing.T) {
	wire := normalizeMessages([]ChatMessage{
		{Role: "tool", Parts: []ContentPart{{Type: "text", Text: "result a"}, {Type: "text", Text: "result b"}}},
		{Role: "function", Content: "fn output"},
	})
	require.Len(t, wire, 2)
	assert.Equal(t, "user", wire[0].Role)
	assert.Equal(t, "result a\nresult b", wire[0].Content)
	assert.Equal(t, "user", wire[1].Role)
	assert.Equal(t, "fn output", wire[1].Content)
}

func TestNormalizePlainContentAndDefaultRole(t *testing.T) {
	wire := normalizeMessages([]ChatMessage{{Content: "just text"}})
	require.Len(t, wire, 1)
	assert.Equal(t, "user", wire[0].Role)
	assert.Equal(t, "just text", wire[0].Content)
}
