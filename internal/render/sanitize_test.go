package render

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"**bold** text", "bold text"},
		{"*italic*", "italic"},
		{"***both***", "both"},
		{"2 * 3 = 6", "2  3 = 6"},
		{"**unclosed", "unclosed"},
		{"Mục *tiêu*", "Mục tiêu"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClean_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.String().Draw(rt, "s")
		once := Clean(s)
		if strings.Contains(once, "*") {
			rt.Fatalf("Clean(%q) = %q still contains '*'", s, once)
		}
		if twice := Clean(once); twice != once {
			rt.Fatalf("Clean not idempotent: %q -> %q -> %q", s, once, twice)
		}
		if want := strings.ReplaceAll(s, "*", ""); once != want {
			rt.Fatalf("Clean(%q) = %q, want only asterisks removed (%q)", s, once, want)
		}
	})
}
