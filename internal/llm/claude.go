package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultClaudeBaseURL   = "https://api.anthropic.com/v1"
	defaultClaudeModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens       = 4000
	anthropicVersion       = "2023-06-01"
	defaultRequestTimeout  = 5 * time.Minute
	claudeMaxRetries       = 3
	defaultTemperature     = 0.1
	claudeRetryBaseBackoff = time.Second
)

// ClaudeClient talks to the Anthropic messages API.
type ClaudeClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	backoff    time.Duration
}

func NewClaude(cfg Config) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &ClaudeClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: cfg.HTTPClient,
		backoff:    claudeRetryBaseBackoff,
	}
	if c.baseURL == "" {
		c.baseURL = defaultClaudeBaseURL
	}
	if c.model == "" {
		c.model = defaultClaudeModel
	}
	if c.maxTokens == 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultRequestTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c, nil
}

func (c *ClaudeClient) Model() string { return c.model }

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type claudeMessage struct {
	Role    string         `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt, with the image first when one is attached.
// Rate limits and server errors are retried with exponential backoff.
func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	var content []claudeContent
	if len(req.Image) > 0 {
		content = append(content, claudeContent{
			Type: "image",
			Source: &claudeSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}
	content = append(content, claudeContent{Type: "text", Text: req.Prompt})

	body := claudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      req.SystemPrompt,
		Messages:    []claudeMessage{{Role: "user", Content: content}},
		Temperature: defaultTemperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal claude request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= claudeMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}

		text, retry, err := c.send(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return "", lastErr
}

func (c *ClaudeClient) send(ctx context.Context, payload []byte) (text string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("create claude request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read claude response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("claude API status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed claudeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("decode claude response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("claude API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("claude API status %d", resp.StatusCode)
	}

	var sb strings.Builder
	for _, part := range parsed.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", false, fmt.Errorf("claude response has no text content")
	}
	return sb.String(), false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
