package nlp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/fingraph/pkg/types"
)

// scriptedClient returns canned responses/errors in order.
type scriptedClient struct {
	calls     int
	responses []*types.Response
	errs      []error
}

func (s *scriptedClient) step() (*types.Response, error) {
	i := s.calls
	s.calls++
	var resp *types.Response
	var err error
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

func (s *scriptedClient) Chat(ctx context.Context, _ []types.Message) (*types.Response, error) {
	return s.step()
}

func (s *scriptedClient) ChatJSON(ctx context.Context, _ []types.Message) (*types.Response, error) {
	return s.step()
}

func (s *scriptedClient) Ping(ctx context.Context) types.ConnectionStatus {
	return types.ConnectionStatus{State: types.ConnectionOK}
}

func (s *scriptedClient) Close() error { return nil }

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	inner := &scriptedClient{
		responses: []*types.Response{nil, {Content: "ok"}},
		errs:      []error{errors.New("503 service unavailable"), nil},
	}
	client := NewRetryClient(inner, fastRetryConfig(2))

	resp, attempts, err := client.ChatJSONCounted(context.Background(), []types.Message{NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{
			errors.New("timeout"),
			errors.New("timeout"),
			errors.New("timeout"),
		},
	}
	client := NewRetryClient(inner, fastRetryConfig(2))

	_, attempts, err := client.ChatJSONCounted(context.Background(), nil)
	require.Error(t, err)
	// Initial attempt plus two retries, per the chunk retry policy.
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{errors.New("400 bad request: model does not exist")},
	}
	client := NewRetryClient(inner, fastRetryConfig(2))

	_, err := client.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryHonoursContextCancellation(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{errors.New("connection refused"), errors.New("connection refused")},
	}
	client := NewRetryClient(inner, &RetryConfig{
		MaxRetries:        2,
		InitialDelay:      time.Hour,
		MaxDelay:          time.Hour,
		BackoffMultiplier: 2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Chat(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(errors.New("429 too many requests")))
	assert.True(t, IsRetryableError(errors.New("connection reset by peer")))
	assert.True(t, IsRetryableError(&RateLimitError{}))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.False(t, IsRetryableError(errors.New("invalid request")))
	assert.False(t, IsRetryableError(nil))
}

func TestCalculateDelayDoubles(t *testing.T) {
	client := NewRetryClient(&scriptedClient{}, &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
	})

	assert.Equal(t, 100*time.Millisecond, client.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, client.calculateDelay(2))
	assert.Equal(t, 400*time.Millisecond, client.calculateDelay(3))
	assert.Equal(t, time.Second, client.calculateDelay(10))
}
