// Package lesson defines the lesson-plan record that the AI generator and
// the manual editor produce, and that the renderer turns into a document.
package lesson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EmptyActivity is the placeholder stored upstream for an activity that has
// no real content yet. It is treated the same as an empty string.
const EmptyActivity = "Chưa có nội dung"

// Plan is a lesson plan: header metadata plus the structured content.
type Plan struct {
	Subject     string  `json:"subject"`
	Grade       string  `json:"grade"`
	TeacherName string  `json:"teacherName"`
	LessonTitle string  `json:"lessonTitle"`
	Duration    string  `json:"duration"`
	Content     Content `json:"content"`
}

// Content is the semi-structured body of a lesson plan.
type Content struct {
	Objectives Objectives  `json:"objectives"`
	Equipment  Equipment   `json:"equipment"`
	Activities Activities  `json:"activities"`
	Adjustment *Adjustment `json:"adjustment,omitempty"`
}

// Objectives lists what the lesson should achieve (section I).
type Objectives struct {
	Knowledge    Text         `json:"knowledge"`
	Competencies Competencies `json:"competencies"`
	Qualities    StringList   `json:"qualities"`
}

// Competencies splits the competency goals into general and subject-specific.
type Competencies struct {
	General  StringList `json:"general"`
	Specific StringList `json:"specific"`
}

// Equipment lists the materials for the teacher and for the students (section II).
type Equipment struct {
	Teacher StringList `json:"teacher"`
	Student StringList `json:"student"`
}

// Activities holds the four fixed activity slots of section III.
type Activities struct {
	Activity1 Activity `json:"activity1"`
	Activity2 Activity `json:"activity2"`
	Activity3 Activity `json:"activity3"`
	Activity4 Activity `json:"activity4"`
}

// List returns the four activities in document order.
func (a Activities) List() []Activity {
	return []Activity{a.Activity1, a.Activity2, a.Activity3, a.Activity4}
}

// Activity is one teaching activity. Content is free text that mixes plain
// lines, **bold**/*italic* emphasis, bullet lines and pipe-delimited tables.
type Activity struct {
	Title   Text `json:"title"`
	Content Text `json:"content"`
}

// HasContent reports whether the activity should appear in the document.
func (a Activity) HasContent() bool {
	c := strings.TrimSpace(string(a.Content))
	return c != "" && c != EmptyActivity
}

// Adjustment is the optional post-lesson review (section IV).
type Adjustment struct {
	NhanXet        Text       `json:"nhanXet"`
	HuongDieuChinh Entries    `json:"huongDieuChinh"`
}

// Present reports whether section IV is emitted: the note is non-empty or
// the directions list has at least one element. Whitespace and blank
// elements count.
func (a *Adjustment) Present() bool {
	if a == nil {
		return false
	}
	return a.NhanXet != "" || len(a.HuongDieuChinh) > 0
}

// DecodeContent parses a stored or generated content document. Fields of
// the wrong shape decode to their empty value rather than failing.
func DecodeContent(data []byte) (Content, error) {
	var c Content
	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("decode lesson content: %w", err)
	}
	return c, nil
}

// DecodePlan parses a full plan document (metadata and content).
func DecodePlan(data []byte) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("decode lesson plan: %w", err)
	}
	return p, nil
}
