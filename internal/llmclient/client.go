// Package llmclient implements the LLM and embeddings client contract of
// spec.md §4.A: blocking chat/embed calls with bounded retry, exponential
// backoff, and optional telemetry hooks. The core depends only on this
// abstract capability set — the concrete provider wire format is an
// external concern (spec.md §1).
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	hmoerrors "hmo-benefits-core/internal/errors"

	"go.uber.org/zap"
)

// ChatClient issues chat completions, optionally constraining the
// response to a single syntactically valid JSON value.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, jsonMode bool) (string, error)
}

// EmbeddingsClient issues batched text embeddings, preserving input order.
type EmbeddingsClient interface {
	EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

type chatRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Client is an HTTP client for an OpenAI-chat-compatible endpoint,
// covering both the chat and embeddings capability.
type Client struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string

	MaxRetries   int
	BackoffBase  time.Duration
	HTTPTimeout  time.Duration

	OnResult Hook
	OnError  Hook

	logger     *zap.Logger
	httpClient *http.Client
}

// New builds a Client. logger may be nil.
func New(baseURL, apiKey, chatModel, embeddingModel string, maxRetries int, backoffBase, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		APIKey:         apiKey,
		ChatModel:      chatModel,
		EmbeddingModel: embeddingModel,
		MaxRetries:     maxRetries,
		BackoffBase:    backoffBase,
		HTTPTimeout:    timeout,
		logger:         logger,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) backoffSleep(ctx context.Context, attempt int) {
	d := c.BackoffBase * time.Duration(1<<uint(attempt-1))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isTransient(statusCode int, err error) bool {
	if err != nil {
		return true
	}
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusBadGateway:
		return true
	default:
		return false
	}
}

// Chat performs a single chat completion call with bounded retry.
func (c *Client) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	body := chatRequest{
		Model:       c.ChatModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if jsonMode {
		body.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := c.BaseURL + "/chat/completions"

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		resp, statusCode, respBody, err := c.doJSON(ctx, url, payload)
		if err == nil && !isTransient(statusCode, nil) {
			if statusCode != http.StatusOK {
				return "", fmt.Errorf("%w: chat status %d: %s", hmoerrors.ErrUpstream, statusCode, string(respBody))
			}
			var cr chatResponse
			if err := json.Unmarshal(respBody, &cr); err != nil {
				return "", fmt.Errorf("decode chat response: %w", err)
			}
			if len(cr.Choices) == 0 {
				return "", fmt.Errorf("%w: no choices in chat response", hmoerrors.ErrUpstream)
			}
			safeInvoke(c.OnResult, "llm.chat.success", map[string]any{
				"attempt":   attempt,
				"json_mode": jsonMode,
			})
			_ = resp
			return cr.Choices[0].Message.Content, nil
		}

		lastErr = err
		if err == nil {
			lastErr = fmt.Errorf("transient status %d", statusCode)
		}
		safeInvoke(c.OnError, "llm.chat.error", map[string]any{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < c.MaxRetries {
			c.backoffSleep(ctx, attempt)
		}
	}

	if c.logger != nil {
		c.logger.Error("chat call exhausted retries", zap.Error(lastErr), zap.Int("max_retries", c.MaxRetries))
	}
	return "", fmt.Errorf("%w: %v", hmoerrors.ErrUpstream, lastErr)
}

// EmbedTexts embeds texts in order, batching at batchSize, with bounded
// retry per batch.
func (c *Client) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 64
	}

	out := make([][]float32, 0, len(texts))
	url := c.BaseURL + "/embeddings"

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := c.embedBatch(ctx, url, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}

	safeInvoke(c.OnResult, "llm.embed.success", map[string]any{"count": len(texts)})
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, url string, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingsRequest{Model: c.EmbeddingModel, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		_, statusCode, respBody, err := c.doJSON(ctx, url, payload)
		if err == nil && !isTransient(statusCode, nil) {
			if statusCode != http.StatusOK {
				return nil, fmt.Errorf("%w: embeddings status %d: %s", hmoerrors.ErrUpstream, statusCode, string(respBody))
			}
			var er embeddingsResponse
			if err := json.Unmarshal(respBody, &er); err != nil {
				return nil, fmt.Errorf("decode embeddings response: %w", err)
			}
			vectors := make([][]float32, len(batch))
			for _, d := range er.Data {
				if d.Index < 0 || d.Index >= len(vectors) {
					continue
				}
				vectors[d.Index] = d.Embedding
			}
			return vectors, nil
		}

		lastErr = err
		if err == nil {
			lastErr = fmt.Errorf("transient status %d", statusCode)
		}
		safeInvoke(c.OnError, "llm.embed.error", map[string]any{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < c.MaxRetries {
			c.backoffSleep(ctx, attempt)
		}
	}
	return nil, fmt.Errorf("%w: %v", hmoerrors.ErrUpstream, lastErr)
}

// doJSON posts payload and returns the raw response, status code, and body.
// A non-nil error means a transport-level failure (network, context);
// a nil error with a transient status code is also retryable by the caller.
func (c *Client) doJSON(ctx context.Context, url string, payload []byte) (*http.Response, int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, nil, ctx.Err()
		}
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp, resp.StatusCode, body, nil
}
