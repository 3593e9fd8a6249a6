// Package llm talks to the hosted language model behind the storefront chat.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash-latest:generateContent"

// ErrEmptyReply means the model answered without any text candidate.
var ErrEmptyReply = errors.New("model returned no text")

type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	maxRetries uint64
}

// NewGeminiClient returns nil when no API key is configured; a nil client answers
// every call with domain.ErrChatDisabled.
func NewGeminiClient(apiKey, endpoint string, timeout time.Duration) *GeminiClient {
	if apiKey == "" {
		logger.Info().Msg("LLM API key not configured, chat assistant disabled")
		return nil
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: 2,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the whole conversation and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if c == nil {
		return "", domain.ErrChatDisabled
	}

	req := generateRequest{Contents: make([]content, 0, len(messages))}
	for _, m := range messages {
		role := "user"
		if m.Role == domain.ChatRoleModel {
			role = "model"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var out generateResponse
	op := func() error {
		return c.post(ctx, body, &out)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}

	for _, cand := range out.Candidates {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyReply
}

func (c *GeminiClient) post(ctx context.Context, body []byte, out *generateResponse) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("invalid LLM endpoint: %w", err))
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read LLM response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var decoded generateResponse
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		err := fmt.Errorf("LLM error (status %d): %s", resp.StatusCode, msg)
		// 4xx other than 429 is a problem with the request itself.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode LLM response: %w", err))
	}
	return nil
}
