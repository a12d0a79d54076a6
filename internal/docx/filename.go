package docx

import (
	"regexp"
	"strings"
)

// Whitespace covers \s, vertical tab, the Unicode space separators such as
// no-break space, and the byte order mark.
var (
	unsafeNameRE = regexp.MustCompile(`[^\w\s\v\p{Zs}\x{FEFF}-]`)
	spaceRunRE   = regexp.MustCompile(`[\s\v\p{Zs}\x{FEFF}]+`)
)

const (
	maxNameLen  = 100
	defaultName = "lesson-plan"
)

// Filename derives the attachment name for a lesson plan. Only ASCII word
// characters, whitespace and hyphens survive, so accented Vietnamese letters
// are dropped entirely: "Bài 10" becomes "Bi-10".
func Filename(lessonTitle string) string {
	name := unsafeNameRE.ReplaceAllString(lessonTitle, "")
	name = spaceRunRE.ReplaceAllString(name, "-")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	if name == "" {
		name = defaultName
	}
	return "Giao-An-" + name + ".docx"
}

// ContentDisposition returns the header value for downloading name.
func ContentDisposition(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '"' || r == '\n' || r == '\r' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return `attachment; filename="` + name + `"`
}
