package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/metrics"
)

// Client is bound to one credential and retries rate-limited calls.
// It keeps no state between calls.
type Client struct {
	transport Transport
	token     string
	policy    RetryPolicy
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewClient creates a client bound to token
func NewClient(transport Transport, token string, policy RetryPolicy, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		transport: transport,
		token:     token,
		policy:    policy,
		clock:     clk,
		logger:    logger.With(slog.String("component", "remote")),
		metrics:   m,
	}
}

// Call sends payload to method and decodes the response into result.
// Only the rate-limit status is retried; every other failure is returned immediately.
func (c *Client) Call(ctx context.Context, method Method, payload, result any) error {
	req := &Request{Method: method, Token: c.token, Payload: payload}

	for attempt := 0; ; attempt++ {
		resp, err := c.transport.Do(ctx, req)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if result != nil && len(resp.Body) > 0 {
				if err := json.Unmarshal(resp.Body, result); err != nil {
					return fmt.Errorf("failed to parse %s response: %w", method, err)
				}
			}
			return nil
		}

		rateLimited := resp.StatusCode == c.policy.RateLimitStatus
		remoteErr := &RemoteError{Method: method, StatusCode: resp.StatusCode, Body: string(resp.Body), RateLimited: rateLimited}
		if !rateLimited || attempt >= c.policy.RetryAttempts {
			c.metrics.RemoteError(resp.StatusCode)
			return remoteErr
		}

		delay := c.policy.DelayFor(attempt)
		c.logger.Warn("rate limited, retrying",
			slog.String("method", method.String()),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", c.policy.RetryAttempts),
			slog.Duration("delay", delay),
		)
		c.metrics.RemoteRetry(method.String())

		if err := c.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}
