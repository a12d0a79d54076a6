// Package llm provides the LLM service client for drafting lesson plans
// via OpenAI-compatible Chat Completion API endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// LLMService defines the interface for chat-style text generation.
type LLMService interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APILLMService implements LLMService using an OpenAI-compatible Chat Completion API.
type APILLMService struct {
	Endpoint    string
	APIKey      string
	ModelName   string
	Temperature float64
	MaxTokens   int
	client      *http.Client
}

// NewAPILLMService creates a new APILLMService with the given configuration.
// A non-positive timeout falls back to 120 seconds.
func NewAPILLMService(endpoint, apiKey, modelName string, temperature float64, maxTokens int, timeout time.Duration) *APILLMService {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &APILLMService{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		ModelName:   modelName,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}
}

// chatRequest is the request body for the OpenAI-compatible chat completion API.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// chatResponse is the response body from the chat completion API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Chat sends the messages and returns the first choice's content.
// It retries once on failure unless the context is done.
func (s *APILLMService) Chat(ctx context.Context, messages []Message) (string, error) {
	answer, err := s.callAPI(ctx, messages)
	if err == nil {
		return answer, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	log.Printf("[LLM] request failed, retrying: %v", err)

	answer, err = s.callAPI(ctx, messages)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// callAPI sends the chat completion request to the API and returns the generated text.
func (s *APILLMService) callAPI(ctx context.Context, messages []Message) (string, error) {
	if s.Endpoint == "" {
		return "", errors.New("LLM endpoint not configured")
	}
	reqBody := chatRequest{
		Model:       s.ModelName,
		Messages:    messages,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(s.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("LLM API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return "", fmt.Errorf("LLM API error (HTTP %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("LLM API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("LLM API returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}
