// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

/*
transport.go - Discourse HTTP Transport Adapter

The transport issues signed requests against the Discourse REST API and
signals failure to callers with a (body, ok) pair instead of an error.
Transport-level failures (connect errors, non-2xx statuses, body read
errors) are logged with method and path context and otherwise swallowed at
this layer: the adapter never retries and never raises past its boundary,
so callers apply uniform sentinel handling.

Resilience Mechanisms:
  - Circuit Breaker: opens at a 60% failure rate over at least 10 requests
    (1 minute window, 2 minute open period)
  - Rate Limiting: client-side token bucket smooths bursts against the
    remote API
  - Timeout: fixed 30-second request timeout
*/
package discourse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/quillcms/discourse-bridge/internal/logging"
	"github.com/quillcms/discourse-bridge/internal/metrics"
)

const (
	// requestTimeout bounds every request to the remote API.
	requestTimeout = 30 * time.Second

	// maxResponseBody limits how much of a response is read, preventing
	// unbounded allocation on a misbehaving remote.
	maxResponseBody = 8 << 20 // 8MB

	breakerName = "discourse-api"
)

// headerAPIKey and headerAPIUsername sign every request. The username may
// be overridden per request for user-scoped calls.
const (
	headerAPIKey      = "Api-Key"
	headerAPIUsername = "Api-Username"
)

// Transport issues signed HTTP requests to the Discourse API.
//
// Thread Safety: safe for concurrent use; each call builds its own request.
type Transport struct {
	baseURL     string
	apiKey      string
	apiUsername string

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewTransport creates a transport for the given Discourse instance.
// baseURL must carry no trailing slash.
func NewTransport(baseURL, apiKey, apiUsername string) *Transport {
	t := &Transport{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		apiUsername: apiUsername,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		// 10 requests/second with small bursts is well under Discourse's
		// default admin API limits.
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed

	t.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return t
}

// BaseURL returns the configured base URL of the remote instance.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Do issues a signed request against the remote API and returns the raw
// response body. ok is false on any transport-level failure; the failure is
// logged here and never surfaces as an error.
//
// headers may override the default signing headers (notably Api-Username
// for user-scoped calls). For POST and PUT, a non-nil form is encoded as
// multipart/form-data with JSON accept and gzip content-encoding headers;
// for DELETE it is sent urlencoded.
func (t *Transport) Do(ctx context.Context, method, path string, headers map[string]string, form url.Values) ([]byte, bool) {
	if err := t.limiter.Wait(ctx); err != nil {
		logging.Warn().Err(err).Str("method", method).Str("path", path).Msg("Request cancelled while rate limited")
		return nil, false
	}

	start := time.Now()
	body, err := t.breaker.Execute(func() ([]byte, error) {
		return t.roundTrip(ctx, method, path, headers, form)
	})
	metrics.TransportRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.TransportRequests.WithLabelValues(method, "rejected").Inc()
			logging.Warn().Err(err).Str("method", method).Str("path", path).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, false
		}
		metrics.TransportRequests.WithLabelValues(method, "failure").Inc()
		logging.Error().Err(err).Str("method", method).Str("path", path).Msg("Discourse request failed")
		return nil, false
	}

	metrics.TransportRequests.WithLabelValues(method, "success").Inc()
	return body, true
}

// roundTrip builds, signs, and executes a single request.
func (t *Transport) roundTrip(ctx context.Context, method, path string, headers map[string]string, form url.Values) ([]byte, error) {
	var (
		body        io.Reader
		contentType string
		formHeaders bool
	)

	if form != nil {
		switch method {
		case http.MethodPost, http.MethodPut:
			buf := &bytes.Buffer{}
			writer := multipart.NewWriter(buf)
			for key, values := range form {
				for _, value := range values {
					if err := writer.WriteField(key, value); err != nil {
						return nil, err
					}
				}
			}
			if err := writer.Close(); err != nil {
				return nil, err
			}
			body = buf
			contentType = writer.FormDataContentType()
			formHeaders = true
		default:
			body = strings.NewReader(form.Encode())
			contentType = "application/x-www-form-urlencoded"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set(headerAPIKey, t.apiKey)
	req.Header.Set(headerAPIUsername, t.apiUsername)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if formHeaders {
		req.Header.Set("Accept", "application/json; charset=utf-8")
		req.Header.Set("Content-Encoding", "gzip")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: truncateForLog(raw)}
	}

	return raw, nil
}

// StatusError reports a non-2xx response from the remote API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.Status)
	}
	return http.StatusText(e.Status) + ": " + e.Body
}

// truncateForLog keeps error bodies short enough for log lines.
func truncateForLog(raw []byte) string {
	const max = 256
	if len(raw) > max {
		return string(raw[:max]) + "... (truncated)"
	}
	return string(raw)
}

// stateToFloat converts circuit breaker state to a numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
