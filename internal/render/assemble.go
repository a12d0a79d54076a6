package render

import (
	"fmt"
	"strings"

	"giaoan/internal/lesson"
)

// Document and section titles.
const (
	DocumentTitle   = "KẾ HOẠCH BÀI DẠY"
	SectionObjects  = "I. MỤC TIÊU"
	SectionEquip    = "II. THIẾT BỊ DẠY HỌC VÀ HỌC LIỆU"
	SectionProcess  = "III. TIẾN TRÌNH DẠY HỌC"
	SectionAdjust   = "IV. ĐIỀU CHỈNH SAU BÀI DẠY"
	activityDefault = "HOẠT ĐỘNG %d"
)

// Assembler builds block lists from lesson content. It holds no mutable
// state and is safe for concurrent use.
type Assembler struct {
	triggers   Triggers
	classifier *Classifier
}

// NewAssembler returns an assembler using the given trigger set.
func NewAssembler(t Triggers) *Assembler {
	return &Assembler{triggers: t, classifier: NewClassifier(t)}
}

// Default returns an assembler with DefaultTriggers.
func Default() *Assembler {
	return NewAssembler(DefaultTriggers())
}

// Walk converts an activity body into blocks. Runs of lines starting with
// "|" become tables (each followed by a spacing paragraph); every other
// non-blank line goes through the classifier.
func (a *Assembler) Walk(content string) []Block {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var blocks []Block
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		if !strings.HasPrefix(line, "|") {
			blocks = a.appendLine(blocks, line)
			i++
			continue
		}

		end := i + 1
		for end < len(lines) {
			next := strings.TrimSpace(lines[end])
			if !strings.HasPrefix(next, "|") && !strings.HasPrefix(next, "---") {
				break
			}
			end++
		}
		run := lines[i:end]
		i = end
		if t := ParseTable(run, a.triggers); t != nil {
			blocks = append(blocks, t, spacer())
			continue
		}
		for _, l := range run {
			blocks = a.appendLine(blocks, l)
		}
	}
	return blocks
}

func (a *Assembler) appendLine(blocks []Block, line string) []Block {
	if p, ok := a.classifier.Classify(line); ok {
		blocks = append(blocks, p)
	}
	return blocks
}

// Document assembles the whole lesson plan: title, metadata, and the four
// numbered sections. Section III only lists activities with real content;
// section IV only appears when the adjustment has something to say.
func (a *Assembler) Document(p lesson.Plan) []Block {
	blocks := []Block{
		&Paragraph{
			Runs:         []TextRun{{Text: DocumentTitle, Bold: true}},
			Heading:      Heading1,
			Alignment:    AlignCenter,
			SpacingAfter: SpacingUnit,
		},
	}

	meta := []struct{ label, value string }{
		{"Môn học", p.Subject},
		{"Lớp", p.Grade},
		{"Giáo viên", p.TeacherName},
		{"Tên bài dạy", p.LessonTitle},
		{"Thời gian thực hiện", p.Duration},
	}
	for _, m := range meta {
		if strings.TrimSpace(m.value) == "" {
			continue
		}
		blocks = append(blocks, labeled(m.label, m.value, 0))
	}

	c := p.Content
	blocks = append(blocks, section(SectionObjects))
	blocks = appendList(blocks, "1. Về kiến thức", lines(string(c.Objectives.Knowledge)))
	blocks = appendList(blocks, "2. Về năng lực đặc thù", c.Objectives.Competencies.Specific)
	blocks = appendList(blocks, "3. Về năng lực chung", c.Objectives.Competencies.General)
	blocks = appendList(blocks, "4. Về phẩm chất", c.Objectives.Qualities)

	blocks = append(blocks,
		section(SectionEquip),
		labeled("1. Giáo viên", strings.Join(c.Equipment.Teacher, ", "), HalfIndent),
		labeled("2. Học sinh", strings.Join(c.Equipment.Student, ", "), HalfIndent),
	)

	blocks = append(blocks, section(SectionProcess))
	for i, act := range c.Activities.List() {
		if !act.HasContent() {
			continue
		}
		title := strings.TrimSpace(Clean(string(act.Title)))
		if title == "" {
			title = fmt.Sprintf(activityDefault, i+1)
		}
		blocks = append(blocks, &Paragraph{
			Runs:          []TextRun{{Text: title, Bold: true}},
			SpacingBefore: HalfSpacing,
			SpacingAfter:  HalfSpacing,
		})
		blocks = append(blocks, a.Walk(string(act.Content))...)
	}

	if adj := c.Adjustment; adj.Present() {
		blocks = append(blocks, section(SectionAdjust))
		if note := strings.TrimSpace(string(adj.NhanXet)); note != "" {
			blocks = append(blocks, labeled("Nhận xét", Clean(note), HalfIndent))
		}
		blocks = appendList(blocks, "Hướng điều chỉnh", adj.HuongDieuChinh)
	}
	return blocks
}

// section returns a roman-numeral section heading.
func section(title string) *Paragraph {
	return &Paragraph{
		Runs:          []TextRun{{Text: title, Bold: true}},
		Heading:       Heading2,
		SpacingBefore: SpacingUnit,
		SpacingAfter:  HalfSpacing,
	}
}

// labeled returns "label: value" with a bold label.
func labeled(label, value string, indent float64) *Paragraph {
	runs := []TextRun{{Text: label + ": ", Bold: true}}
	if value = strings.TrimSpace(value); value != "" {
		runs = append(runs, TextRun{Text: value})
	}
	return &Paragraph{Runs: runs, IndentLeft: indent}
}

// appendList adds a bold sub-heading and one paragraph per item. Empty
// lists add nothing.
func appendList(blocks []Block, heading string, items []string) []Block {
	var paras []Block
	for _, item := range items {
		text := strings.TrimSpace(Clean(item))
		if text == "" {
			continue
		}
		if !strings.HasPrefix(text, "-") {
			text = bulleted(text)
		}
		paras = append(paras, &Paragraph{Runs: []TextRun{{Text: text}}, IndentLeft: IndentUnit})
	}
	if len(paras) == 0 {
		return blocks
	}
	blocks = append(blocks, &Paragraph{
		Runs:       []TextRun{{Text: heading + ":", Bold: true}},
		IndentLeft: HalfIndent,
	})
	return append(blocks, paras...)
}

func lines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
