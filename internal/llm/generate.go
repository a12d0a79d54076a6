package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"giaoan/internal/lesson"
)

// GenerateRequest describes the lesson a teacher wants drafted.
type GenerateRequest struct {
	Subject     string `json:"subject"`
	Grade       string `json:"grade"`
	LessonTitle string `json:"lessonTitle"`
	Duration    string `json:"duration"`
	Notes       string `json:"notes"`
}

// ErrEmptyAnswer is returned when the model answers without usable content.
var ErrEmptyAnswer = errors.New("model returned no lesson content")

// systemPrompt asks for the content document in the shape lesson.Content decodes.
const systemPrompt = `Bạn là giáo viên giàu kinh nghiệm, soạn kế hoạch bài dạy theo Công văn 5512 của Bộ GD&ĐT.
Chỉ trả lời bằng một đối tượng JSON duy nhất, không kèm lời giải thích, theo đúng cấu trúc:
{
  "objectives": {
    "knowledge": "các ý về kiến thức, mỗi ý một dòng",
    "competencies": {"general": ["..."], "specific": ["..."]},
    "qualities": ["..."]
  },
  "equipment": {"teacher": ["..."], "student": ["..."]},
  "activities": {
    "activity1": {"title": "1. HOẠT ĐỘNG MỞ ĐẦU", "content": "..."},
    "activity2": {"title": "2. HOẠT ĐỘNG HÌNH THÀNH KIẾN THỨC MỚI", "content": "..."},
    "activity3": {"title": "3. HOẠT ĐỘNG LUYỆN TẬP", "content": "..."},
    "activity4": {"title": "4. HOẠT ĐỘNG VẬN DỤNG", "content": "..."}
  }
}
Trong "content" của mỗi hoạt động, ghi "a) Mục tiêu:", "b) Nội dung:", "c) Sản phẩm:" rồi trình bày
"d) Tổ chức thực hiện:" dưới dạng bảng Markdown hai cột "HOẠT ĐỘNG CỦA GV VÀ HS" | "SẢN PHẨM DỰ KIẾN",
mỗi bước một dòng bảng. Không dùng ký hiệu LaTeX.`

// LessonGenerator drafts lesson content with an LLM.
type LessonGenerator struct {
	llm LLMService
}

// NewLessonGenerator creates a LessonGenerator over the given service.
func NewLessonGenerator(svc LLMService) *LessonGenerator {
	return &LessonGenerator{llm: svc}
}

// BuildMessages constructs the system and user messages for a request.
func BuildMessages(req GenerateRequest) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Môn học: %s\n", strings.TrimSpace(req.Subject))
	fmt.Fprintf(&b, "Lớp: %s\n", strings.TrimSpace(req.Grade))
	fmt.Fprintf(&b, "Tên bài dạy: %s\n", strings.TrimSpace(req.LessonTitle))
	if d := strings.TrimSpace(req.Duration); d != "" {
		fmt.Fprintf(&b, "Thời gian thực hiện: %s\n", d)
	}
	if n := strings.TrimSpace(req.Notes); n != "" {
		fmt.Fprintf(&b, "Yêu cầu thêm: %s\n", n)
	}
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// Generate asks the model for lesson content and decodes its answer.
func (g *LessonGenerator) Generate(ctx context.Context, req GenerateRequest) (lesson.Content, error) {
	if strings.TrimSpace(req.LessonTitle) == "" {
		return lesson.Content{}, errors.New("lesson title is required")
	}
	answer, err := g.llm.Chat(ctx, BuildMessages(req))
	if err != nil {
		return lesson.Content{}, fmt.Errorf("generate lesson: %w", err)
	}

	body := ExtractJSON(answer)
	if body == "" {
		return lesson.Content{}, ErrEmptyAnswer
	}
	content, err := lesson.DecodeContent([]byte(body))
	if err != nil {
		return lesson.Content{}, fmt.Errorf("generate lesson: %w", err)
	}
	log.Printf("[LLM] generated content for %q", req.LessonTitle)
	return content, nil
}

// ExtractJSON strips a Markdown code fence around the answer, if any, and
// trims text outside the outermost braces.
func ExtractJSON(answer string) string {
	s := strings.TrimSpace(answer)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = ""
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
