package nlp

import (
	"context"
	"time"

	"github.com/finsight/fingraph/pkg/types"
)

// TimeoutClient bounds every individual call to the wrapped client. Placed
// under the retry decorator, it gives each attempt its own deadline instead
// of one deadline across the whole retry loop.
type TimeoutClient struct {
	client  Client
	timeout time.Duration
}

// NewTimeoutClient wraps client with a per-call timeout.
func NewTimeoutClient(client Client, timeout time.Duration) *TimeoutClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TimeoutClient{client: client, timeout: timeout}
}

// Chat implements Client.
func (c *TimeoutClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Chat(ctx, messages)
}

// ChatJSON implements Client.
func (c *TimeoutClient) ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.ChatJSON(ctx, messages)
}

// Ping implements Client with a short probe deadline of its own.
func (c *TimeoutClient) Ping(ctx context.Context) types.ConnectionStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(ctx)
}

// Close implements Client.
func (c *TimeoutClient) Close() error {
	return c.client.Close()
}
