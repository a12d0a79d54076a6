package docx

import (
	"strings"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"Bài 10: Quả Hồng của Thỏ Con", "Giao-An-Bi-10-Qu-Hng-ca-Th-Con.docx"},
		{"Lesson Plan", "Giao-An-Lesson-Plan.docx"},
		{"Bài   học  mới", "Giao-An-Bi-hc-mi.docx"},
		{"phép_cộng-2", "Giao-An-php_cng-2.docx"},
		{"", "Giao-An-lesson-plan.docx"},
		{"ỏ ờ", "Giao-An--.docx"},
		{"Ả", "Giao-An-lesson-plan.docx"},
		{"a\"b/c\\d", "Giao-An-abcd.docx"},
		{"Bài\u00a010", "Giao-An-Bi-10.docx"},
		{"Bài\v10", "Giao-An-Bi-10.docx"},
		{"Bài\u2003\u00a0 10", "Giao-An-Bi-10.docx"},
		{"Bài\ufeff10", "Giao-An-Bi-10.docx"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestFilename_Truncates(t *testing.T) {
	got := Filename(strings.Repeat("a", 150))
	want := "Giao-An-" + strings.Repeat("a", 100) + ".docx"
	if got != want {
		t.Errorf("Filename(150×a) = %q, want %q", got, want)
	}
}

func TestContentDisposition(t *testing.T) {
	got := ContentDisposition("Giao-An-\"x\"\r\n.docx")
	want := `attachment; filename="Giao-An-_x___.docx"`
	if got != want {
		t.Errorf("ContentDisposition = %q, want %q", got, want)
	}
}
