package checklist

import "strings"

// Matcher classifies normalized checklist text. Implementations receive text
// that already went through Normalize.
type Matcher interface {
	// IsDisconnectStep reports whether the item records the equipment being
	// disconnected or the study discontinued.
	IsDisconnectStep(normalized string) bool
	// IsCloseoutStep reports whether the item records the end time being
	// charted and the reading provider informed.
	IsCloseoutStep(normalized string) bool
}

// KeywordMatcher is the substring matcher used for stored lab data.
type KeywordMatcher struct{}

var _ Matcher = KeywordMatcher{}

func (KeywordMatcher) IsDisconnectStep(normalized string) bool {
	return strings.Contains(normalized, "disconnect") || strings.Contains(normalized, "discontinue")
}

func (KeywordMatcher) IsCloseoutStep(normalized string) bool {
	return strings.Contains(normalized, "place end time") &&
		strings.Contains(normalized, "chart") &&
		strings.Contains(normalized, "inform reading provider")
}
