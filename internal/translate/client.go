// Package translate calls an OpenAI-compatible chat completions endpoint to
// rewrite message text under a per-route instruction.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client talks to one OpenAI-compatible backend.
type Client struct {
	apiKey      string
	apiBase     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	retryConfig RetryConfig
}

// NewClient builds a translation client. An empty apiBase targets the
// OpenAI API.
func NewClient(apiKey, apiBase, model string, maxTokens int, temperature float64) *Client {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	apiBase = strings.TrimRight(apiBase, "/")

	return &Client{
		apiKey:      apiKey,
		apiBase:     apiBase,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
		retryConfig: DefaultRetryConfig(),
	}
}

// Translate rewrites text under the given instruction. The instruction is
// the system message; the source text goes through verbatim as the user
// message so channel content can never be confused with directives.
func (c *Client) Translate(ctx context.Context, text, instruction string) (string, error) {
	var messages []chatMessage
	if instruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: instruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: text})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	start := time.Now()
	out, err := retryDo(ctx, c.retryConfig, func() (string, error) {
		return c.doRequest(ctx, body)
	})
	if err != nil {
		return "", err
	}

	slog.Debug("translation complete",
		"model", c.model,
		"chars_in", len(text),
		"chars_out", len(out),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, body chatRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &HTTPError{
			Status:     resp.StatusCode,
			Body:       string(respBody),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty response: no choices")
	}

	out := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("empty response: blank content")
	}
	return out, nil
}
