package render

import "strings"

// Clean removes lightweight emphasis markers: every "**" and then every
// remaining "*". Markers are not paired, so a lone asterisk in prose is
// dropped as well.
func Clean(text string) string {
	if !strings.Contains(text, "*") {
		return text
	}
	text = strings.ReplaceAll(text, "**", "")
	return strings.ReplaceAll(text, "*", "")
}
