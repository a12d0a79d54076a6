package render

import (
	"regexp"
	"strings"
)

// Triggers decides which text fragments mark activity titles and sub-item
// headings. Table rows whose first cell matches are merged into one
// full-width cell; matching lines and cells are rendered bold.
type Triggers struct {
	// ActivityTitle matches a numbered activity heading such as
	// "1. HOẠT ĐỘNG KHỞI ĐỘNG".
	ActivityTitle *regexp.Regexp
	// Phrases are matched case-insensitively anywhere in the text.
	Phrases []string
}

var activityTitleRE = regexp.MustCompile(`(?i)^\d+\.\s*HOẠT ĐỘNG`)

// DefaultTriggers returns the phrase set used by Vietnamese lesson plans.
func DefaultTriggers() Triggers {
	return Triggers{
		ActivityTitle: activityTitleRE,
		Phrases:       []string{"Mục tiêu", "Cách tiến hành"},
	}
}

// IsActivityTitle reports whether text is a numbered activity heading.
func (t Triggers) IsActivityTitle(text string) bool {
	return t.ActivityTitle != nil && t.ActivityTitle.MatchString(text)
}

// HasPhrase reports whether text contains one of the sub-item phrases.
func (t Triggers) HasPhrase(text string) bool {
	if len(t.Phrases) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range t.Phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// IsMergeTrigger reports whether a table row starting with text collapses
// into a single full-width cell.
func (t Triggers) IsMergeTrigger(text string) bool {
	return t.IsActivityTitle(text) || t.HasPhrase(text)
}

// IsBoldTrigger reports whether a table cell with text is rendered bold.
func (t Triggers) IsBoldTrigger(text string) bool {
	return t.IsActivityTitle(text) || t.HasPhrase(text)
}
