package docx

import (
	"fmt"
	"strings"

	"giaoan/internal/lesson"
	"giaoan/internal/render"
)

// Render assembles and serializes one lesson plan.
func Render(p lesson.Plan) ([]byte, error) {
	return RenderWith(render.Default(), p)
}

// RenderWith is Render with a caller-supplied assembler.
func RenderWith(a *render.Assembler, p lesson.Plan) ([]byte, error) {
	b := &Builder{
		Title:   strings.TrimSpace(p.LessonTitle),
		Creator: strings.TrimSpace(p.TeacherName),
	}
	data, err := b.Build(a.Document(p))
	if err != nil {
		return nil, fmt.Errorf("render lesson plan: %w", err)
	}
	return data, nil
}
