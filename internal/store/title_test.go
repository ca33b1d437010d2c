// ABOUTME: Tests for conversation title derivation
// ABOUTME: Covers short input, word-boundary truncation, and hard truncation

package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTitle_ShortInputUnchanged(t *testing.T) {
	input := strings.Repeat("a", 20)
	assert.Equal(t, input, GenerateTitle(input))
}

func TestGenerateTitle_ExactLimitUnchanged(t *testing.T) {
	input := strings.Repeat("b", 30)
	assert.Equal(t, input, GenerateTitle(input))
}

func TestGenerateTitle_WordBoundaryTruncation(t *testing.T) {
	input := strings.TrimSpace(strings.Repeat("word ", 10)) // 49 chars
	got := GenerateTitle(input)

	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 33)
	// Truncation lands on a word boundary, not mid-word.
	assert.Equal(t, "word word word word word word...", got)
}

func TestGenerateTitle_HardTruncationWithoutBoundary(t *testing.T) {
	input := strings.Repeat("x", 40)
	got := GenerateTitle(input)

	assert.Equal(t, strings.Repeat("x", 30)+"...", got)
}

func TestGenerateTitle_EarlySpaceIgnored(t *testing.T) {
	// A lone space before the midpoint must not become the break point.
	input := "ab " + strings.Repeat("y", 40)
	got := GenerateTitle(input)

	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, 33)
}

func TestGenerateTitle_NormalizesWhitespace(t *testing.T) {
	assert.Equal(t, "hello world", GenerateTitle("  hello \n\t world  "))
}
