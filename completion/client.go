// Package completion calls an Azure-OpenAI-style chat-completion deployment:
// POST {base}/deployments/{deployment}/chat/completions/?api-version={v}
// authenticated with an api-key header.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Config struct {
	BaseURL    string // e.g. https://example.openai.azure.com/openai
	Deployment string // deployment (model) name
	APIVersion string
	APIKey     string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      RetryConfig
}

func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		retry: DefaultRetryConfig,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete submits prompt as a single user message and returns the model's
// reply text. Transient failures (429, 5xx, network timeouts) are retried at
// this transport layer; the error returned is final.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/deployments/%s/chat/completions/?api-version=%s",
		c.cfg.BaseURL, c.cfg.Deployment, c.cfg.APIVersion)

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	resp, err := doWithRetry(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", c.cfg.APIKey)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion API error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
