// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// =============================================================================
// Configuration
// =============================================================================

// TokenSource supplies the bearer token for each call. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Config configures a Client. Only BaseURL is required.
type Config struct {
	// BaseURL is the backend origin, e.g. "http://localhost:5000".
	BaseURL string

	// Timeout bounds each call. Default 30s.
	Timeout time.Duration

	// RateLimit is the sustained requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter's bucket size. Default 1 when limiting.
	RateBurst int

	// Tokens supplies the bearer token. Nil means unauthenticated.
	Tokens TokenSource

	Logger *slog.Logger

	// Registerer receives the request metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
}

// =============================================================================
// Client
// =============================================================================

// Client calls the backend REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Client.
//
// # Inputs
//
//   - cfg: Client configuration. BaseURL must be an absolute http(s) URL.
//
// # Outputs
//
//   - *Client: Ready to use.
//   - error: Non-nil when BaseURL is missing or malformed.
//
// # Examples
//
//	client, err := api.New(api.Config{
//	    BaseURL: "http://localhost:5000",
//	    Tokens:  app,
//	})
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		tokens:  cfg.Tokens,
		limiter: limiter,
		logger:  logger,
		metrics: NewMetrics(cfg.Registerer),
	}, nil
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Metrics returns the client's collectors.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// request describes one call. Exactly one of JSON or Body may be set.
type request struct {
	op     string
	method string
	path   string
	query  url.Values

	json        any
	body        io.Reader
	contentType string
}

// do executes req and decodes a 2xx body into out. An empty or null body
// leaves out untouched.
func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer().Start(ctx, "api."+req.op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("http.route", req.path),
			attribute.String("request.id", requestID),
		),
	)
	code := "error"
	defer func() {
		c.metrics.RequestsTotal.WithLabelValues(req.op, code).Inc()
		c.metrics.RequestDuration.WithLabelValues(req.op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// Closing an unsent streaming body stops its producer goroutine.
	if closer, ok := req.body.(io.Closer); ok {
		defer closer.Close()
	}

	fail := func(wrapped error) error {
		return &Error{Method: req.method, Path: req.path, Wrapped: wrapped}
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.metrics.RateLimited.Inc()
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(fmt.Errorf("rate limit: %w", err))
		}
	}

	httpReq, err := c.newRequest(ctx, requestID, req)
	if err != nil {
		return fail(err)
	}

	c.logger.Debug("api request", "request_id", requestID, "op", req.op, "method", req.method, "path", req.path)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("api request failed", "request_id", requestID, "op", req.op, "error", err)
		return fail(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("failed to close response body", "error", cerr)
		}
	}()

	code = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(resp.StatusCode, body),
			Method:     req.method,
			Path:       req.path,
		}
		c.logger.Error("server returned error",
			"request_id", requestID,
			"op", req.op,
			"status_code", resp.StatusCode,
			"message", apiErr.Message,
		)
		return apiErr
	}

	c.logger.Debug("api response", "request_id", requestID, "op", req.op,
		"status_code", resp.StatusCode, "duration", time.Since(start))

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    "malformed response",
			Method:     req.method,
			Path:       req.path,
			Wrapped:    fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, requestID string, req request) (*http.Request, error) {
	target := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	body := req.body
	contentType := req.contentType
	if req.json != nil {
		payload, err := json.Marshal(req.json)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}
