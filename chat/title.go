package chat

import "strings"

const (
	titleTokenCount = 3
	titleMaxRunes   = 30
	titleEllipsis   = "..."
)

// DeriveTitle builds a session title from the first user message: the first
// three whitespace-delimited tokens joined by single spaces, truncated to 30
// runes with a trailing ellipsis when longer. Returns "" for all-whitespace
// input.
func DeriveTitle(content string) string {
	tokens := strings.Fields(content)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > titleTokenCount {
		tokens = tokens[:titleTokenCount]
	}
	title := strings.Join(tokens, " ")
	runes := []rune(title)
	if len(runes) > titleMaxRunes {
		title = string(runes[:titleMaxRunes]) + titleEllipsis
	}
	return title
}
