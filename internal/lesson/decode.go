package lesson

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text is a string field that also accepts numbers, arrays of scalars
// (joined by newlines) and null. AI output is not always shaped the way
// the prompt asked for.
type Text string

// String returns the text as a plain string.
func (t Text) String() string { return string(t) }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text(scalarText(data))
	return nil
}

// StringList is a list field that also accepts a single string (split on
// newlines), a scalar, or null.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = nil
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s := strings.TrimSpace(scalarText(item)); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	default:
		for _, line := range strings.Split(scalarText(data), "\n") {
			if s := strings.TrimSpace(line); s != "" {
				*l = append(*l, s)
			}
		}
	}
	return nil
}

// Entries is a list whose array form keeps blank elements, so the element
// count of the source array survives decoding. Text and null decode as for
// StringList.
type Entries []string

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entries) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		var l StringList
		l.UnmarshalJSON(data)
		*e = Entries(l)
		return nil
	}
	*e = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(Entries, 0, len(raw))
	for _, item := range raw {
		out = append(out, scalarText(item))
	}
	*e = out
	return nil
}

// scalarText renders one JSON value as text. Objects yield "".
func scalarText(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) == nil {
			return s
		}
	case '[':
		var raw []json.RawMessage
		if json.Unmarshal(data, &raw) != nil {
			return ""
		}
		parts := make([]string, 0, len(raw))
		for _, item := range raw {
			if s := scalarText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case 't', 'f':
		var b bool
		if json.Unmarshal(data, &b) == nil {
			return strconv.FormatBool(b)
		}
	case 'n', '{':
		return ""
	default:
		var n json.Number
		if json.Unmarshal(data, &n) == nil {
			return n.String()
		}
	}
	return ""
}

// decodeFields decodes the members of a JSON object into the given targets,
// ignoring members that are missing or of the wrong shape. Non-object input
// leaves every target untouched.
func decodeFields(data []byte, fields map[string]any) {
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil {
		return
	}
	for name, target := range fields {
		raw, ok := obj[name]
		if !ok {
			continue
		}
		_ = json.Unmarshal(raw, target)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var subject, grade, teacher, title, duration Text
	var content Content
	decodeFields(data, map[string]any{
		"subject":     &subject,
		"grade":       &grade,
		"teacherName": &teacher,
		"lessonTitle": &title,
		"duration":    &duration,
		"content":     &content,
	})
	*p = Plan{
		Subject:     string(subject),
		Grade:       string(grade),
		TeacherName: string(teacher),
		LessonTitle: string(title),
		Duration:    string(duration),
		Content:     content,
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	var out Content
	decodeFields(data, map[string]any{
		"objectives": &out.Objectives,
		"equipment":  &out.Equipment,
		"activities": &out.Activities,
		"adjustment": &out.Adjustment,
	})
	*c = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Objectives) UnmarshalJSON(data []byte) error {
	var out Objectives
	decodeFields(data, map[string]any{
		"knowledge":    &out.Knowledge,
		"competencies": &out.Competencies,
		"qualities":    &out.Qualities,
	})
	*o = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Competencies) UnmarshalJSON(data []byte) error {
	var out Competencies
	decodeFields(data, map[string]any{
		"general":  &out.General,
		"specific": &out.Specific,
	})
	*c = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Equipment) UnmarshalJSON(data []byte) error {
	var out Equipment
	decodeFields(data, map[string]any{
		"teacher": &out.Teacher,
		"student": &out.Student,
	})
	*e = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Activities) UnmarshalJSON(data []byte) error {
	var out Activities
	decodeFields(data, map[string]any{
		"activity1": &out.Activity1,
		"activity2": &out.Activity2,
		"activity3": &out.Activity3,
		"activity4": &out.Activity4,
	})
	*a = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var out Activity
	decodeFields(data, map[string]any{
		"title":   &out.Title,
		"content": &out.Content,
	})
	*a = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Adjustment) UnmarshalJSON(data []byte) error {
	var out Adjustment
	decodeFields(data, map[string]any{
		"nhanXet":        &out.NhanXet,
		"huongDieuChinh": &out.HuongDieuChinh,
	})
	*a = out
	return nil
}
