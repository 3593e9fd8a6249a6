package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 8 << 20

type tokenKey struct{}

// ContextWithToken attaches the caller's access token to ctx. Every request made
// with that context carries it as a bearer token.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// RetryConfig bounds the exponential backoff applied to idempotent GETs.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
		MaxRetries:      3,
	}
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Retry     RetryConfig
	Transport http.RoundTripper
}

// Client is the typed REST client of the upstream backend. It implements every
// gateway interface of the domain package.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
}

func NewClient(cfg Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.MaxElapsedTime == 0 {
		retry = DefaultRetryConfig()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		retry: retry,
	}
}

// envelope is the backend's response wrapper. Message is a string or, for
// validation failures, a list of strings.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
}

func (e envelope) messageText() string {
	if len(e.Message) == 0 {
		return e.Error
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(e.Message, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return string(e.Message)
}

type request struct {
	method string
	route  string // path template, used as the metrics label
	path   string
	query  url.Values
	body   any
	header http.Header

	raw         []byte
	contentType string
}

// do sends req and decodes the envelope's data into out. GETs are retried with
// exponential backoff on transport errors, 429 and 5xx; everything else is sent
// exactly once.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if req.method != http.MethodGet {
		return c.attempt(ctx, req, out)
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.retry.InitialInterval),
		backoff.WithMaxInterval(c.retry.MaxInterval),
		backoff.WithMaxElapsedTime(c.retry.MaxElapsedTime),
	)

	attempts := 0
	operation := func() error {
		if attempts > 0 {
			retriesTotal.WithLabelValues(req.method, req.route).Inc()
		}
		attempts++
		err := c.attempt(ctx, req, out)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.retry.MaxRetries), ctx))
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrBackendUnavailable)
}

func (c *Client) attempt(ctx context.Context, req request, out any) error {
	start := time.Now()
	code := "error"
	defer func() {
		requestDuration.WithLabelValues(req.method, req.route).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(req.method, req.route, code).Inc()
	}()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
		}
		return fmt.Errorf("%s %s: %w: %v", req.method, req.path, domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	code = strconv.Itoa(resp.StatusCode)

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %v", req.method, req.path, domain.ErrBackendUnavailable, err)
	}

	var (
		env       envelope
		decodeErr error
	)
	if len(bytes.TrimSpace(payload)) > 0 {
		decodeErr = json.Unmarshal(payload, &env)
	}

	status := resp.StatusCode
	if status < 300 && env.StatusCode >= 400 {
		status = env.StatusCode
	}
	if status >= 300 {
		logger.WithContext(ctx).Debug().
			Str("method", req.method).
			Str("path", req.path).
			Int("status", status).
			Str("message", env.messageText()).
			Msg("Backend request failed")
		return statusError(status, env.messageText())
	}
	if decodeErr != nil {
		return fmt.Errorf("%s %s: decode envelope: %w", req.method, req.path, decodeErr)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", req.method, req.path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.raw != nil:
		body = bytes.NewReader(req.raw)
		contentType = req.contentType
	case req.body != nil:
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	for k, vals := range req.header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := TokenFromContext(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func statusError(status int, message string) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized:
		sentinel = domain.ErrUnauthorized
	case status == http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case status == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case status == http.StatusConflict:
		sentinel = domain.ErrTransitionRejected
	case status == http.StatusTooManyRequests || status >= 500:
		sentinel = domain.ErrBackendUnavailable
	}
	return &domain.APIError{StatusCode: status, Message: message, Err: sentinel}
}

// Ping checks that the backend answers at all. Any HTTP answer counts as alive.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	resp.Body.Close()
	return nil
}
