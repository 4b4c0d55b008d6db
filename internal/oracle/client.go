package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"plotpact/internal/metrics"
)

const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 2
)

type Options struct {
	// Provider labels logs and metrics.
	Provider string
	// Timeout bounds the whole call including retries. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxRetries counts retries after the first attempt. Negative disables retries.
	MaxRetries int
	// RetryInterval is the first backoff interval. Zero keeps the backoff default.
	RetryInterval time.Duration
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
}

// Client wraps a provider Oracle with a deadline and retries transient
// failures with exponential backoff.
type Client struct {
	next   Oracle
	opts   Options
	logger *slog.Logger
}

var _ Oracle = (*Client)(nil)

func NewClient(next Oracle, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Provider == "" {
		opts.Provider = "unknown"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{next: next, opts: opts, logger: logger}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var text string
	attempt := 0
	op := func() error {
		attempt++
		out, err := c.next.Complete(ctx, req)
		if err == nil {
			text = out
			c.opts.Metrics.OracleCall(c.opts.Provider, "ok")
			return nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.opts.Metrics.OracleCall(c.opts.Provider, "timeout")
			return backoff.Permanent(fmt.Errorf("timed out after %s: %w", c.opts.Timeout, err))
		}
		c.opts.Metrics.OracleCall(c.opts.Provider, "error")
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("oracle call failed, retrying",
			slog.String("provider", c.opts.Provider),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if c.opts.RetryInterval > 0 {
		policy.InitialInterval = c.opts.RetryInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.opts.MaxRetries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", fmt.Errorf("oracle %s: %w", c.opts.Provider, err)
	}
	return text, nil
}
