package workunit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mcoot/caseclicker-orchestrator/internal/metrics"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
)

// CycleConfig describes one batch
type CycleConfig struct {
	CaseID    string
	BatchSize int
	AutoOpen  remote.AutoOpenConfig
}

// CycleResult aggregates one buy-then-open batch
type CycleResult struct {
	Owned         int
	Purchased     int
	Opened        int
	OpenedValue   decimal.Decimal
	AutoSoldCount int
	AutoSoldValue decimal.Decimal

	// PurchaseErr is set when buying failed and the batch fell back to owned stock
	PurchaseErr error
}

// CaseCycle buys the shortfall of a batch and opens it
type CaseCycle struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCaseCycle creates a new CaseCycle
func NewCaseCycle(logger *slog.Logger, m *metrics.Metrics) *CaseCycle {
	return &CaseCycle{
		logger:  logger.With(slog.String("component", "case-cycle")),
		metrics: m,
	}
}

// Run performs one batch. A failed purchase falls back to opening what is already owned;
// failing to list stock, failing to open, or having nothing to open is an error.
func (c *CaseCycle) Run(ctx context.Context, api remote.GameAPI, cfg CycleConfig) (*CycleResult, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}

	result := &CycleResult{OpenedValue: decimal.Zero, AutoSoldValue: decimal.Zero}

	owned, err := api.OwnedCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owned cases: %w", err)
	}
	for _, oc := range owned {
		if oc.ID == cfg.CaseID {
			result.Owned = oc.Amount
			break
		}
	}

	toOpen := cfg.BatchSize
	if result.Owned < cfg.BatchSize {
		shortfall := cfg.BatchSize - result.Owned
		c.logger.Info("buying cases", slog.String("case_id", cfg.CaseID), slog.Int("amount", shortfall))
		if err := api.BuyCases(ctx, cfg.CaseID, shortfall); err != nil {
			if result.Owned == 0 {
				return nil, fmt.Errorf("buy cases: %w", err)
			}
			c.logger.Warn("purchase failed, opening owned stock",
				slog.Int("owned", result.Owned),
				slog.String("error", err.Error()),
			)
			result.PurchaseErr = err
			toOpen = result.Owned
		} else {
			result.Purchased = shortfall
			c.metrics.CasesPurchased(shortfall)
		}
	} else {
		c.logger.Debug("enough cases owned", slog.Int("owned", result.Owned))
	}

	opened, err := api.OpenCases(ctx, cfg.CaseID, toOpen, cfg.AutoOpen)
	if err != nil {
		return nil, fmt.Errorf("open cases: %w", err)
	}

	result.Opened = toOpen
	for _, skin := range opened.Skins {
		result.OpenedValue = result.OpenedValue.Add(skin.Price)
	}
	if opened.AutoSellInfo != nil {
		result.AutoSoldCount = opened.AutoSellInfo.Count
		result.AutoSoldValue = opened.AutoSellInfo.Cost
	}

	c.metrics.CasesOpened(result.Opened)
	c.metrics.ItemsSold("auto", result.AutoSoldCount)

	c.logger.Info("opened cases",
		slog.Int("opened", result.Opened),
		slog.String("opened_value", result.OpenedValue.StringFixed(2)),
		slog.Int("auto_sold", result.AutoSoldCount),
		slog.String("auto_sold_value", result.AutoSoldValue.StringFixed(2)),
	)
	return result, nil
}
