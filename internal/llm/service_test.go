package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func answerHandler(t *testing.T, answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Choices: []chatChoice{{Message: Message{Role: "assistant", Content: answer}}}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestChat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("expected /chat/completions path, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}
		if req.Temperature != 0.3 || req.MaxTokens != 2048 {
			t.Errorf("temperature/max_tokens = %v/%d", req.Temperature, req.MaxTokens)
		}
		answerHandler(t, "Xin chào")(w, r)
	}))
	defer server.Close()

	svc := NewAPILLMService(server.URL+"/", "test-key", "test-model", 0.3, 2048, 5*time.Second)
	got, err := svc.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "Xin chào" {
		t.Errorf("Chat = %q", got)
	}
}

func TestChat_RetriesOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		answerHandler(t, "ok")(w, r)
	}))
	defer server.Close()

	svc := NewAPILLMService(server.URL, "", "m", 0.7, 0, time.Second)
	got, err := svc.Chat(context.Background(), nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "ok" || calls.Load() != 2 {
		t.Errorf("got %q after %d calls", got, calls.Load())
	}
}

func TestChat_BothAttemptsFail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer server.Close()

	svc := NewAPILLMService(server.URL, "k", "m", 0.7, 0, time.Second)
	_, err := svc.Chat(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("err = %v, want API error message", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestChat_NoRetryAfterCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		http.Error(w, "fail", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewAPILLMService(server.URL, "", "m", 0.7, 0, time.Second)
	if _, err := svc.Chat(ctx, nil); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestChat_NoChoicesAndNoEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	svc := NewAPILLMService(server.URL, "", "m", 0.7, 0, time.Second)
	if _, err := svc.Chat(context.Background(), nil); err == nil {
		t.Error("expected error for empty choices")
	}

	empty := NewAPILLMService("", "", "m", 0.7, 0, 0)
	if _, err := empty.Chat(context.Background(), nil); err == nil {
		t.Error("expected error for missing endpoint")
	}
}

type fakeLLM struct {
	answer string
	err    error
	got    []Message
}

func (f *fakeLLM) Chat(ctx context.Context, messages []Message) (string, error) {
	f.got = messages
	return f.answer, f.err
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages(GenerateRequest{Subject: "Toán", Grade: "6", LessonTitle: "Phân số", Notes: "  "})
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("messages = %+v", msgs)
	}
	user := msgs[1].Content
	for _, want := range []string{"Môn học: Toán", "Lớp: 6", "Tên bài dạy: Phân số"} {
		if !strings.Contains(user, want) {
			t.Errorf("user message missing %q", want)
		}
	}
	if strings.Contains(user, "Thời gian") || strings.Contains(user, "Yêu cầu thêm") {
		t.Errorf("blank fields should be omitted: %q", user)
	}
}

func TestGenerate_DecodesFencedAnswer(t *testing.T) {
	fake := &fakeLLM{answer: "Đây là giáo án:\n```json\n" + `{
		"objectives": {"knowledge": ["Khái niệm phân số", "Cách đọc"], "qualities": "Chăm chỉ\nTrung thực"},
		"activities": {"activity1": {"title": "1. HOẠT ĐỘNG MỞ ĐẦU", "content": "a) Mục tiêu: gợi mở"}}
	}` + "\n```"}
	g := NewLessonGenerator(fake)

	c, err := g.Generate(context.Background(), GenerateRequest{LessonTitle: "Phân số"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(c.Objectives.Knowledge) != "Khái niệm phân số\nCách đọc" {
		t.Errorf("Knowledge = %q", c.Objectives.Knowledge)
	}
	if len(c.Objectives.Qualities) != 2 {
		t.Errorf("Qualities = %v", c.Objectives.Qualities)
	}
	if !c.Activities.Activity1.HasContent() {
		t.Error("activity1 missing")
	}
	if len(fake.got) != 2 {
		t.Errorf("sent %d messages", len(fake.got))
	}
}

func TestGenerate_Errors(t *testing.T) {
	g := NewLessonGenerator(&fakeLLM{answer: "{}"})
	if _, err := g.Generate(context.Background(), GenerateRequest{}); err == nil {
		t.Error("expected error for missing title")
	}

	g = NewLessonGenerator(&fakeLLM{answer: "Xin lỗi, tôi không thể giúp."})
	if _, err := g.Generate(context.Background(), GenerateRequest{LessonTitle: "x"}); !errors.Is(err, ErrEmptyAnswer) {
		t.Errorf("err = %v, want ErrEmptyAnswer", err)
	}

	g = NewLessonGenerator(&fakeLLM{answer: "{not json}"})
	if _, err := g.Generate(context.Background(), GenerateRequest{LessonTitle: "x"}); err == nil {
		t.Error("expected decode error")
	}

	boom := errors.New("boom")
	g = NewLessonGenerator(&fakeLLM{err: boom})
	if _, err := g.Generate(context.Background(), GenerateRequest{LessonTitle: "x"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"Kết quả: {\"a\":{\"b\":2}} xong", `{"a":{"b":2}}`},
		{"no braces", ""},
		{"```", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractJSON(tc.in); got != tc.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
