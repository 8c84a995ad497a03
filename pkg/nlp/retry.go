package nlp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/finsight/fingraph/pkg/types"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 2,
	// i.e. three attempts total)
	MaxRetries int
	// InitialDelay is the delay before the first retry (default: 1 second)
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries (default: 30 seconds)
	MaxDelay time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff (default: 2.0)
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: three attempts
// total with a doubling backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        2,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryClient wraps an LLM client and adds retry with exponential backoff.
// Attempt accounting is exposed so callers can record how many calls a chunk
// cost.
type RetryClient struct {
	client Client
	config *RetryConfig
}

// NewRetryClient creates a new retry client wrapper
func NewRetryClient(client Client, config *RetryConfig) *RetryClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 2
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	return &RetryClient{client: client, config: config}
}

// Chat implements the Client interface with retry logic.
func (r *RetryClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, _, err := r.do(ctx, func() (*types.Response, error) {
		return r.client.Chat(ctx, messages)
	})
	return resp, err
}

// ChatJSON implements the Client interface with retry logic.
func (r *RetryClient) ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, _, err := r.do(ctx, func() (*types.Response, error) {
		return r.client.ChatJSON(ctx, messages)
	})
	return resp, err
}

// ChatJSONCounted behaves like ChatJSON and reports the number of attempts
// made, successful or not.
func (r *RetryClient) ChatJSONCounted(ctx context.Context, messages []types.Message) (*types.Response, int, error) {
	return r.do(ctx, func() (*types.Response, error) {
		return r.client.ChatJSON(ctx, messages)
	})
}

// ValidationError marks a response that came back fine at the transport
// level but failed the caller's validation. It is always retried within the
// attempt budget: a fresh completion may well parse.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is implements errors.Is support for ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ChatJSONValidated sends a chat completion in JSON mode and runs validate
// over the response before accepting it. Both transport failures and
// validation failures consume attempts from the same budget, so a chunk
// never costs more than MaxRetries+1 LLM calls in total.
func (r *RetryClient) ChatJSONValidated(ctx context.Context, messages []types.Message, validate func(*types.Response) error) (*types.Response, int, error) {
	return r.do(ctx, func() (*types.Response, error) {
		resp, err := r.client.ChatJSON(ctx, messages)
		if err != nil {
			return nil, err
		}
		if err := validate(resp); err != nil {
			return nil, &ValidationError{Err: err}
		}
		return resp, nil
	})
}

func (r *RetryClient) do(ctx context.Context, call func() (*types.Response, error)) (*types.Response, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.calculateDelay(attempt)):
			case <-ctx.Done():
				return nil, attempts, fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		attempts++
		resp, err := call()
		if err == nil {
			return resp, attempts, nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return nil, attempts, err
		}
	}

	return nil, attempts, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Ping delegates to the wrapped client; probes are not retried.
func (r *RetryClient) Ping(ctx context.Context) types.ConnectionStatus {
	return r.client.Ping(ctx)
}

// Close implements the Client interface
func (r *RetryClient) Close() error {
	return r.client.Close()
}

// calculateDelay calculates the backoff for a given retry attempt.
func (r *RetryClient) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}

// IsRetryableError determines if an error is worth retrying: rate limits,
// server errors and transport failures are; everything else is not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrModelUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"500", "internal server error",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"rate limit",
		"too many requests",
		"429",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	type httpErrorWithStatusCode interface {
		HTTPStatusCode() int
	}
	if httpErr, ok := err.(httpErrorWithStatusCode); ok {
		statusCode := httpErr.HTTPStatusCode()
		if statusCode >= 500 || statusCode == http.StatusTooManyRequests {
			return true
		}
	}

	return false
}
