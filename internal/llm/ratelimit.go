package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient paces calls to an underlying Client with a token bucket.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner so that at most rps requests start per
// second, with bursts up to burst. A non-positive rps disables pacing.
func NewRateLimitedClient(inner Client, rps float64, burst int) *RateLimitedClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GenerateContent waits for a token, then delegates.
func (c *RateLimitedClient) GenerateContent(ctx context.Context, system, prompt string, tier ModelTier) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.inner.GenerateContent(ctx, system, prompt, tier)
}

// GenerateJSON waits for a token, then delegates.
func (c *RateLimitedClient) GenerateJSON(ctx context.Context, system, prompt string, tier ModelTier) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.inner.GenerateJSON(ctx, system, prompt, tier)
}

// GetModel delegates to the wrapped client.
func (c *RateLimitedClient) GetModel(tier ModelTier) string {
	return c.inner.GetModel(tier)
}

// Close closes the wrapped client.
func (c *RateLimitedClient) Close() error {
	return c.inner.Close()
}
