// Package upstream wraps HTTP calls to the pharmacy platform API.
// The API is opaque: this client knows paths and body shapes, nothing about
// how the backend is built. Every call goes through the circuit breaker and
// the bulkhead; reads additionally retry with backoff.
//
// The client performs no side effects on auth failures. A 401 on a bearer
// call surfaces as domain.ErrUpstreamAuth and the session layer reacts.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("upstream")

// Client wraps HTTP calls to the pharmacy API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a pharmacy API client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// CircuitState reports the breaker position for health reporting.
func (c *Client) CircuitState() string {
	return c.cb.State().String()
}

// statusError is a non-2xx upstream answer, with the server's message when
// the payload carried one.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// upstreamMessage extracts a human-readable message from an error payload.
// The backend answers either {"message": "..."} or {"error": "..."}.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// doRequest executes one request. token, when non-empty, becomes the bearer
// header; a 401 on a bearer call is mapped to ErrUpstreamAuth, while a 401
// on an anonymous call (sign-in) stays a plain statusError so the caller can
// read it as bad credentials. 4xx answers are permanent — retrying them
// would fail identically.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body []byte, contentType string) (respBody []byte, respContentType string, err error) {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		c.logger.Error("upstream: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, "", resilience.Permanent(err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upstream: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("upstream: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, "", err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized && token != "":
		c.logger.Warn("upstream: bearer rejected",
			zap.String("method", method),
			zap.String("path", path),
		)
		return nil, "", resilience.Permanent(&domain.ErrUpstreamAuth{})

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("upstream: request OK",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return data, resp.Header.Get("Content-Type"), nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Warn("upstream: client error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(data)),
		)
		return nil, "", resilience.Permanent(&statusError{Status: resp.StatusCode, Message: upstreamMessage(data)})

	default:
		c.logger.Warn("upstream: server error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(data)),
		)
		return nil, "", &statusError{Status: resp.StatusCode, Message: upstreamMessage(data)}
	}
}

// get runs a read through bulkhead, breaker and retry.
func (c *Client) get(ctx context.Context, path, token string) ([]byte, string, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, "", err
	}
	defer c.bulkhead.Release()

	var body []byte
	var contentType string
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			body, contentType, err = c.doRequest(ctx, http.MethodGet, path, token, nil, "")
			return err
		})
	})
	return body, contentType, err
}

// post runs a write through bulkhead and breaker. No retry: the endpoints
// are not idempotent and all retry here is user-initiated.
func (c *Client) post(ctx context.Context, path, token string, body []byte, contentType string) ([]byte, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var data []byte
	_, err := c.cb.Execute(func() (any, error) {
		var err error
		data, _, err = c.doRequest(ctx, http.MethodPost, path, token, body, contentType)
		return nil, err
	})
	return data, err
}

// postJSON marshals payload and posts it.
func (c *Client) postJSON(ctx context.Context, path, token string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.post(ctx, path, token, body, "application/json")
}

// wrapErr maps transport-level failures to domain errors. A statusError is
// wrapped in ErrExternalService so an answer no endpoint method maps still
// surfaces the upstream message; the methods reach the statusError through
// Unwrap to handle specific statuses.
func (c *Client) wrapErr(endpoint string, err error) error {
	if err == nil {
		return nil
	}

	c.metrics.IncrUpstreamError(endpoint)

	var upstreamAuth *domain.ErrUpstreamAuth
	var status *statusError
	switch {
	case errors.As(err, &upstreamAuth):
		return upstreamAuth
	case errors.As(err, &status):
		return &domain.ErrExternalService{Service: "pharmacy-api/" + endpoint, Err: status}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "pharmacy-api/" + endpoint}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: endpoint}
	default:
		return &domain.ErrExternalService{Service: "pharmacy-api/" + endpoint, Err: err}
	}
}
