package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Technology", "technology"},
		{"Breaking News: Markets Rally!", "breaking-news-markets-rally"},
		{"  spaced  out  ", "spaced-out"},
		{"UPPER lower 123", "upper-lower-123"},
		{"this is a very long title that should be cut off at fifty characters", "this-is-a-very-long-title-that-should-be-cut-off-a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GenerateSlug(tt.input), tt.input)
	}
}

func TestParseTags(t *testing.T) {
	assert.Empty(t, ParseTags(""))
	assert.Equal(t, []string{"economy", "tech"}, ParseTags("economy, tech"))
	assert.Equal(t, []string{"a", "b"}, ParseTags(`["a", "b"]`))
	assert.Equal(t, []string{"solo"}, ParseTags("solo,"))
}
