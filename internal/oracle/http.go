// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/moodloop/moodloop/internal/metrics"
)

// ErrUnavailable is returned when the oracle cannot be reached after retries
// or the circuit is open.
var ErrUnavailable = errors.New("oracle: unavailable")

// retry policy for one Analyze call
const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
)

// HTTPConfig configures the HTTP oracle client.
type HTTPConfig struct {
	// BaseURL is the analyzer endpoint root; Analyze posts to /analyze.
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls. 0 means no throttle.
	RequestsPerSecond float64
}

// HTTPClient calls a remote analyzer with retry, throttling, and a circuit
// breaker. The breaker runs on real time; tests exercise the static client
// or a stub transport instead of waiting out breaker windows.
type HTTPClient struct {
	cfg     HTTPConfig
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[Analysis]
	logger  zerolog.Logger
}

// NewHTTPClient creates an HTTP oracle client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPClient(cfg HTTPConfig, logger zerolog.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	log := logger.With().Str("component", "oracle").Logger()

	cb := gobreaker.NewCircuitBreaker[Analysis](gobreaker.Settings{
		Name:        "affect-oracle",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordBreakerTransition(name, from, to)
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("oracle breaker state change")
		},
	})

	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		cb:      cb,
		logger:  log,
	}
}

// recordBreakerTransition mirrors a breaker state change into the metrics.
func recordBreakerTransition(name string, from, to gobreaker.State) {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to.String()))
	metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

type analyzeRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Analyze posts the text to the analyzer, retrying transient failures with
// exponential backoff up to maxAttempts. The caller's deadline always wins.
func (c *HTTPClient) Analyze(ctx context.Context, userID, text string) (Analysis, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Analysis{}, fmt.Errorf("oracle throttle: %w", err)
		}
	}

	result, err := c.cb.Execute(func() (Analysis, error) {
		return c.analyzeWithRetry(ctx, userID, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Err(err).Msg("oracle call rejected by breaker")
			return Analysis{}, ErrUnavailable
		}
		return Analysis{}, err
	}
	return result, nil
}

func (c *HTTPClient) analyzeWithRetry(ctx context.Context, userID, text string) (Analysis, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Analysis{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			metrics.OracleRetries.Inc()
		}

		analysis, err := c.analyzeOnce(ctx, userID, text)
		if err == nil {
			return analysis, nil
		}
		if ctx.Err() != nil {
			return Analysis{}, ctx.Err()
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("oracle attempt failed")
	}

	return Analysis{}, fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

func (c *HTTPClient) analyzeOnce(ctx context.Context, userID, text string) (Analysis, error) {
	body, err := json.Marshal(analyzeRequest{UserID: userID, Text: text})
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("oracle request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Analysis{}, fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return Analysis{}, fmt.Errorf("decode response: %w", err)
	}

	analysis.State = analysis.State.Clamped()
	if analysis.Timestamp.IsZero() {
		analysis.Timestamp = time.Now().UTC()
	}
	return analysis, nil
}
