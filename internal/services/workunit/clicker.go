package workunit

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/metrics"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
)

// ClickerConfig holds the pacing of the click loop
type ClickerConfig struct {
	ClickDelay        time.Duration
	RateLimitCooldown time.Duration
	ProgressEvery     int
}

// DefaultClickerConfig returns the live pacing
func DefaultClickerConfig() ClickerConfig {
	return ClickerConfig{
		ClickDelay:        100 * time.Millisecond,
		RateLimitCooldown: 30 * time.Second,
		ProgressEvery:     100,
	}
}

// ClickResult counts what one run of the clicker did
type ClickResult struct {
	Clicks   int
	Failures int
}

// Clicker earns currency by clicking until a deadline
type Clicker struct {
	cfg     ClickerConfig
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClicker creates a new Clicker
func NewClicker(cfg ClickerConfig, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Clicker {
	return &Clicker{
		cfg:     cfg,
		clock:   clk,
		logger:  logger.With(slog.String("component", "clicker")),
		metrics: m,
	}
}

// Run clicks until deadline. Failed clicks are logged and skipped.
// Cancelling ctx stops the loop between clicks; an in-flight click is allowed to finish.
func (c *Clicker) Run(ctx context.Context, api remote.GameAPI, deadline time.Time) (ClickResult, error) {
	var result ClickResult
	callCtx := context.WithoutCancel(ctx)

	c.logger.Info("click loop started",
		slog.Time("deadline", deadline),
		slog.Duration("remaining", deadline.Sub(c.clock.Now())),
	)

	for c.clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := api.Click(callCtx)
		c.metrics.Click(err == nil)
		if err != nil {
			result.Failures++
			c.logger.Warn("click failed", slog.String("error", err.Error()))
			if remote.IsRateLimited(err) {
				if err := c.clock.Sleep(ctx, c.cfg.RateLimitCooldown); err != nil {
					return result, err
				}
			}
		} else {
			result.Clicks++
			if c.cfg.ProgressEvery > 0 && result.Clicks%c.cfg.ProgressEvery == 0 {
				c.logger.Debug("click progress",
					slog.Int("clicks", result.Clicks),
					slog.Duration("remaining", deadline.Sub(c.clock.Now())),
				)
			}
		}

		if err := c.clock.Sleep(ctx, c.cfg.ClickDelay); err != nil {
			return result, err
		}
	}

	c.logger.Info("click loop finished",
		slog.Int("clicks", result.Clicks),
		slog.Int("failures", result.Failures),
	)
	return result, nil
}
