// ABOUTME: Conversation title derivation from the first user message
// ABOUTME: Truncates at a word boundary past the midpoint, appends an ellipsis

package store

import "strings"

// maxTitleLength is the hard cap on derived conversation titles.
const maxTitleLength = 30

// GenerateTitle derives a conversation title from a message. Whitespace
// runs are collapsed; anything longer than 30 characters is truncated,
// preferring the last word boundary past the midpoint, with "..."
// appended.
func GenerateTitle(message string) string {
	normalized := strings.Join(strings.Fields(message), " ")

	if len(normalized) <= maxTitleLength {
		return normalized
	}

	truncated := normalized[:maxTitleLength]
	lastSpace := strings.LastIndex(truncated, " ")

	if lastSpace > maxTitleLength/2 {
		return truncated[:lastSpace] + "..."
	}

	return truncated + "..."
}
