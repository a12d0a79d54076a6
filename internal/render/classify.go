package render

import (
	"regexp"
	"strings"
)

var numberedRE = regexp.MustCompile(`^\d+\.`)

// rule is one guarded matcher in the classification chain. build may
// return nil when the line has no text left after stripping markers.
type rule struct {
	name  string
	match func(line string) bool
	build func(line string) *Paragraph
}

// Classifier assigns a structural role to a single line of free text and
// renders it as a paragraph. Rules are tried in order; the first match wins.
type Classifier struct {
	triggers Triggers
	rules    []rule
}

// NewClassifier builds the rule chain for the given trigger set.
func NewClassifier(t Triggers) *Classifier {
	c := &Classifier{triggers: t}
	c.rules = []rule{
		{name: "heading", match: isHeading, build: buildHeading},
		{name: "activity-title", match: t.IsActivityTitle, build: buildActivityTitle},
		{name: "sub-item", match: func(line string) bool {
			return isBullet(line) && t.HasPhrase(line)
		}, build: buildSubItem},
		{name: "inline-formatted", match: func(line string) bool {
			return strings.Contains(line, "*")
		}, build: buildInline},
		{name: "list-item", match: isBullet, build: buildListItem},
		{name: "separator", match: func(line string) bool {
			return strings.HasPrefix(line, "---")
		}, build: func(string) *Paragraph { return spacer() }},
		{name: "text", match: func(string) bool { return true }, build: buildText},
	}
	return c
}

// Classify renders one line. The line is trimmed first; ok is false when
// nothing should be emitted for it.
func (c *Classifier) Classify(line string) (p *Paragraph, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	for _, r := range c.rules {
		if !r.match(line) {
			continue
		}
		p = r.build(line)
		return p, p != nil
	}
	return nil, false
}

// Role returns the name of the rule that claims the line, for diagnostics.
func (c *Classifier) Role(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	for _, r := range c.rules {
		if r.match(line) {
			return r.name
		}
	}
	return ""
}

func isHeading(line string) bool {
	if strings.HasPrefix(line, "##") {
		return true
	}
	return strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**")
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "• ")
}

func stripBullet(line string) string {
	line = strings.TrimPrefix(line, "- ")
	line = strings.TrimPrefix(line, "• ")
	return strings.TrimSpace(line)
}

// isMarked reports whether text already starts like a list entry, a
// numbered line or a table row.
func isMarked(text string) bool {
	return strings.HasPrefix(text, "-") ||
		strings.HasPrefix(text, "•") ||
		strings.HasPrefix(text, "|") ||
		numberedRE.MatchString(text)
}

func bulleted(text string) string {
	return "- " + text
}

func buildHeading(line string) *Paragraph {
	text := strings.TrimSpace(Clean(strings.TrimLeft(line, "#")))
	if text == "" {
		return nil
	}
	return &Paragraph{
		Runs:          []TextRun{{Text: text, Bold: true}},
		Heading:       Heading2,
		SpacingBefore: HalfSpacing,
		SpacingAfter:  HalfSpacing,
	}
}

func buildActivityTitle(line string) *Paragraph {
	text := strings.TrimSpace(Clean(line))
	if text == "" {
		return nil
	}
	return &Paragraph{
		Runs:          []TextRun{{Text: text, Bold: true}},
		SpacingBefore: HalfSpacing,
		SpacingAfter:  HalfSpacing,
	}
}

func buildSubItem(line string) *Paragraph {
	text := strings.TrimSpace(Clean(stripBullet(line)))
	if text == "" {
		return nil
	}
	return &Paragraph{
		Runs:       []TextRun{{Text: bulleted(text), Bold: true}},
		IndentLeft: IndentUnit,
	}
}

func buildInline(line string) *Paragraph {
	text := strings.TrimSpace(Clean(line))
	if text == "" {
		return nil
	}
	return &Paragraph{
		Runs:       []TextRun{{Text: text}},
		IndentLeft: HalfIndent,
	}
}

func buildListItem(line string) *Paragraph {
	text := strings.TrimSpace(Clean(stripBullet(line)))
	if text == "" {
		return nil
	}
	return &Paragraph{
		Runs:       []TextRun{{Text: bulleted(text)}},
		IndentLeft: IndentUnit,
	}
}

func buildText(line string) *Paragraph {
	text := strings.TrimSpace(Clean(line))
	if text == "" {
		return nil
	}
	if !isMarked(text) {
		text = bulleted(text)
	}
	return &Paragraph{
		Runs:       []TextRun{{Text: text}},
		IndentLeft: HalfIndent,
	}
}
