// Package oracle implements the client for the external recitation
// scoring service. The service analyses a recorded recitation and
// returns the overall score, per-skill tajweed scores, and feedback.
// The client never lets a service failure propagate into the submission
// pipeline: every failure mode collapses into the degraded evaluation.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/pkg/circuitbreaker"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the scoring service client.
type ClientConfig struct {
	// BaseURL is the scoring service base URL
	BaseURL string

	// APIKey authenticates requests to the scoring service
	APIKey string

	// Timeout is the HTTP request timeout; it bounds how long a
	// submission can wait on the analysis
	Timeout time.Duration

	// RateLimiterConfig for request rate control
	RateLimiterConfig RateLimiterConfig

	// RetryConfig for retry behavior
	RetryConfig retry.Config

	// BreakerFailureThreshold is the number of consecutive failures
	// before the circuit opens
	BreakerFailureThreshold int

	// BreakerTimeout is how long the circuit stays open before probing
	BreakerTimeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults. The timeout is tight:
// the learner is waiting synchronously on the scoring response.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           15 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
		RetryConfig: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		BreakerFailureThreshold: 5,
		BreakerTimeout:          30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the scoring service API client.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
	mapper      *Mapper
}

// NewClient creates a new scoring service client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	breaker := circuitbreaker.New("oracle",
		circuitbreaker.WithFailureThreshold(config.BreakerFailureThreshold),
		circuitbreaker.WithTimeout(config.BreakerTimeout),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			config.Logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
	)

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      config.Logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker:     breaker,
		retrier:     retry.FromConfig(config.RetryConfig),
		mapper:      NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// EvaluationRequest is a recording submitted for scoring.
type EvaluationRequest struct {
	// ContentRef identifies the recited passage (e.g. "2:255")
	ContentRef string

	// DurationSeconds is the recording length
	DurationSeconds int

	// AudioFilename is the original upload filename
	AudioFilename string

	// Audio is the raw recording bytes
	Audio []byte
}

// Evaluate submits the recording and returns the validated evaluation.
// Rate limiting, retries, and the circuit breaker all apply; callers
// that must not fail use EvaluateOrDegrade instead.
func (c *Client) Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	body, contentType, err := buildEvaluationBody(req)
	if err != nil {
		return nil, fmt.Errorf("build evaluation body: %w", err)
	}

	var eval *Evaluation
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
			}

			var response APIResponse[EvaluationResponseDTO]
			if err := c.doSingleRequest(ctx, body, contentType, &response); err != nil {
				return err
			}
			if !response.Success {
				return retry.Permanent(fmt.Errorf("api error: %s", response.Error))
			}

			mapped, err := c.mapper.EvaluationFromDTO(&response.Data)
			if err != nil {
				return retry.Permanent(fmt.Errorf("map evaluation: %w", err))
			}

			eval = mapped
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return eval, nil
}

// EvaluateOrDegrade submits the recording and never fails: any
// transport, parse, or range error is logged and replaced with the
// degraded evaluation so the submission pipeline completes regardless.
func (c *Client) EvaluateOrDegrade(ctx context.Context, req EvaluationRequest) *Evaluation {
	eval, err := c.Evaluate(ctx, req)
	if err != nil {
		c.logger.Warn("scoring degraded",
			"content_ref", req.ContentRef,
			"error", err)
		return c.mapper.DegradedEvaluation()
	}
	return eval
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// buildEvaluationBody assembles the multipart request once so retries
// can replay it from the same bytes.
func buildEvaluationBody(req EvaluationRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("content_ref", req.ContentRef); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("duration_seconds", strconv.Itoa(req.DurationSeconds)); err != nil {
		return nil, "", err
	}

	filename := req.AudioFilename
	if filename == "" {
		filename = "recitation.webm"
	}
	part, err := w.CreateFormFile("audio", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// doSingleRequest performs a single scoring request. Errors are wrapped
// Retryable or Permanent for the retrier to classify.
func (c *Client) doSingleRequest(ctx context.Context, body []byte, contentType string, result interface{}) error {
	fullURL := c.config.BaseURL + "/v1/evaluations"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are transient
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.rateLimiter.RecordRateLimitHit()
		return retry.Retryable(&RateLimitError{Message: "rate limit exceeded"})
	}

	if resp.StatusCode >= 500 {
		return retry.Retryable(fmt.Errorf("api error: status %d", resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return retry.Permanent(&apiErr)
		}
		return retry.Permanent(fmt.Errorf("api error: status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks whether the scoring service is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// ClientStatus reports the client's protective-layer state.
type ClientStatus struct {
	RateLimiter  RateLimiterStatus
	BreakerState circuitbreaker.State
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	return ClientStatus{
		RateLimiter:  c.rateLimiter.Status(),
		BreakerState: c.breaker.State(),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
