// Package llm provides the client for the remote chat-completion service.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API credential is configured. Remote
// calls cannot proceed without it and there is no retry.
var ErrNotConfigured = errors.New("OpenAI API key is not configured")

// CompletionError reports a failed completion request. Network failures and
// non-2xx responses are collapsed into this one kind; Message is
// human-readable and safe to surface.
type CompletionError struct {
	StatusCode int
	Message    string
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion API error [%d]: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion API error: %s", e.Message)
}

// Message is a single role/content pair in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the chat-completion client.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient creates a new completion client.
func NewClient(baseURL, apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends the ordered messages to the completion service and returns
// the generated text. Order is significant: the model sees the messages
// exactly as given.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &CompletionError{Message: "failed to reach the completion service"}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CompletionError{Message: "failed to read the completion response"}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp completionResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return "", &CompletionError{StatusCode: resp.StatusCode, Message: errResp.Error.Message}
		}
		return "", &CompletionError{StatusCode: resp.StatusCode, Message: "failed to generate response"}
	}

	var result completionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &CompletionError{Message: "failed to parse the completion response"}
	}
	if len(result.Choices) == 0 {
		return "", &CompletionError{Message: "the completion service returned no choices"}
	}

	return result.Choices[0].Message.Content, nil
}
