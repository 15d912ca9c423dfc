package llmproto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"convorec/internal/retry"
)

var ErrInvalidModel = errors.New("model is required")

// OpenRouterCompleter is the HTTP-backed Completer, modeled on the
// teacher's llm.OpenRouterClient but driven through the shared retry
// package instead of a bespoke backoff loop.
type OpenRouterCompleter struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	policy       retry.Policy
	logger       *slog.Logger
}

// NewOpenRouterCompleter builds a Completer against an OpenAI-compatible
// chat completions endpoint (OpenRouter, or any compatible gateway).
func NewOpenRouterCompleter(apiKey, baseURL, defaultModel string, httpClient *http.Client, logger *slog.Logger) *OpenRouterCompleter {
	return &OpenRouterCompleter{
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   httpClient,
		policy:       retry.DefaultPolicy(),
		logger:       logger,
	}
}

func (c *OpenRouterCompleter) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", ErrInvalidModel
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, respBody, err := retry.DoHTTP(ctx, c.policy, c.logger, func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(buf))
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, err
		}
		defer httpResp.Body.Close()

		respBytes, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return httpResp, nil, fmt.Errorf("read response: %w", err)
		}
		return httpResp, respBytes, nil
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("empty response from model")
	}
	return parsed.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
