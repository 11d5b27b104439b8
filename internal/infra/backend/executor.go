// Package backend talks to the StepCraft backend over HTTP.
//
// Executor applies the retry policy to a single logical request; Client exposes one
// method per backend endpoint and decodes the JSON payloads into domain types.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/stepbridge/internal/core/config"
	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/resolver"
	"github.com/vietddude/stepbridge/internal/metrics"
)

// NoResponseBody replaces an empty 2xx body.
const NoResponseBody = "No response body"

// APIKeyHeader carries the credential on authenticated calls.
const APIKeyHeader = "X-API-Key"

// Doer is the transport. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor issues requests with bounded retry and exponential backoff.
type Executor struct {
	baseURL string
	http    Doer
	creds   CredentialStore
	retry   RetryConfig
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRetryConfig overrides DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) ExecutorOption {
	return func(e *Executor) { e.retry = cfg }
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an executor for baseURL using the given transport.
func NewExecutor(baseURL string, doer Doer, creds CredentialStore, opts ...ExecutorOption) *Executor {
	e := &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		creds:   creds,
		retry:   DefaultRetryConfig,
		sleep:   sleepContext,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retry.MaxAttempts < 1 {
		e.retry.MaxAttempts = 1
	}
	e.log = e.log.With("component", "executor")
	return e
}

// NewHTTPClient builds the pooled client shared by every backend call. Dials go through
// the address cache.
func NewHTTPClient(cfg config.BackendConfig, cache *resolver.Cache) *http.Client {
	dialer := resolver.NewDialer(cache, cfg.ConnectTimeout)
	return &http.Client{
		Timeout: cfg.CallTimeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.MaxIdleConns,
			MaxConnsPerHost:       cfg.MaxConnsPerHost,
			IdleConnTimeout:       5 * time.Minute,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			ExpectContinueTimeout: time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// RetryConfigFrom converts the YAML retry section.
func RetryConfigFrom(cfg config.RetryConfig) RetryConfig {
	rc := DefaultRetryConfig
	if cfg.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelay > 0 {
		rc.InitialDelay = cfg.InitialDelay
	}
	if cfg.BackoffMultiple > 0 {
		rc.BackoffMultiple = cfg.BackoffMultiple
	}
	return rc
}

// Execute runs req and returns the response body.
//
// Non-retryable requests get exactly one attempt. Retryable requests get up to
// MaxAttempts, retrying transport failures and 502/503/504 with a backoff that is
// applied before the next attempt and never after the last one.
//
// Failures are *domain.NetworkError (transport) or *domain.RemoteError (non-2xx).
func (e *Executor) Execute(ctx context.Context, req Request) (string, error) {
	if req.Auth && !e.creds.Configured() {
		return "", domain.ErrNoCredential
	}

	target := e.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
	}

	maxAttempts := 1
	if req.Retryable {
		maxAttempts = e.retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := calculateBackoff(attempt-2, e.retry)
			metrics.BackendRetriesTotal.WithLabelValues(endpoint).Inc()
			if err := e.sleep(ctx, delay); err != nil {
				return "", &domain.NetworkError{Method: req.Method, URL: target, Attempts: attempt - 1, Err: err}
			}
		}

		httpReq, err := e.newRequest(ctx, req, target)
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}

		start := time.Now()
		resp, err := e.http.Do(httpReq)
		if err != nil {
			elapsed := time.Since(start)
			e.log.Warn("HTTP request failed",
				"method", req.Method, "url", target,
				"elapsed_ms", elapsed.Milliseconds(),
				"attempt", attempt, "max_attempts", maxAttempts,
				"error", err)
			metrics.BackendRequestsTotal.WithLabelValues(req.Method, endpoint, "transport_error").Inc()
			lastErr = err

			if attempt < maxAttempts && ClassifyError(err) == ActionRetry {
				continue
			}
			return "", &domain.NetworkError{Method: req.Method, URL: target, Attempts: attempt, Err: err}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		elapsed := time.Since(start)
		metrics.BackendLatency.WithLabelValues(req.Method, endpoint).Observe(elapsed.Seconds())

		if readErr != nil {
			e.log.Warn("HTTP body read failed",
				"method", req.Method, "url", target, "status", resp.StatusCode,
				"elapsed_ms", elapsed.Milliseconds(),
				"attempt", attempt, "max_attempts", maxAttempts,
				"error", readErr)
			metrics.BackendRequestsTotal.WithLabelValues(req.Method, endpoint, "transport_error").Inc()
			lastErr = readErr
			if attempt < maxAttempts {
				continue
			}
			return "", &domain.NetworkError{Method: req.Method, URL: target, Attempts: attempt, Err: readErr}
		}

		e.log.Info("HTTP request",
			"method", req.Method, "url", target, "status", resp.StatusCode,
			"elapsed_ms", elapsed.Milliseconds(),
			"attempt", attempt, "max_attempts", maxAttempts)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			metrics.BackendRequestsTotal.WithLabelValues(req.Method, endpoint, "success").Inc()
			if len(body) == 0 {
				return NoResponseBody, nil
			}
			return string(body), nil
		}

		metrics.BackendRequestsTotal.WithLabelValues(req.Method, endpoint, "http_error").Inc()
		remoteErr := &domain.RemoteError{
			Code:   resp.StatusCode,
			Status: statusText(resp),
			Body:   string(body),
		}
		lastErr = remoteErr
		if attempt < maxAttempts && ClassifyStatus(resp.StatusCode) == ActionRetry {
			continue
		}
		return "", remoteErr
	}

	// Unreachable with maxAttempts >= 1; kept for the compiler.
	return "", &domain.NetworkError{Method: req.Method, URL: target, Attempts: maxAttempts, Err: lastErr}
}

func (e *Executor) newRequest(ctx context.Context, req Request, target string) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	} else if req.Method == http.MethodPost {
		body = http.NoBody
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Auth {
		httpReq.Header.Set(APIKeyHeader, e.creds.APIKey())
	}
	return httpReq, nil
}

// statusText returns the reason phrase, e.g. "Not Found".
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}
