package workunit

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mcoot/caseclicker-orchestrator/internal/metrics"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
)

// BulkSeller sells every inventory item under a price threshold
type BulkSeller struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBulkSeller creates a new BulkSeller
func NewBulkSeller(logger *slog.Logger, m *metrics.Metrics) *BulkSeller {
	return &BulkSeller{
		logger:  logger.With(slog.String("component", "bulk-seller")),
		metrics: m,
	}
}

// Run sells items priced below threshold. An empty sale is a zero result, not an error.
func (b *BulkSeller) Run(ctx context.Context, api remote.GameAPI, threshold decimal.Decimal, currency remote.Currency) (remote.SellResult, error) {
	res, err := api.SellInventory(ctx, threshold, currency)
	if err != nil {
		return remote.SellResult{}, err
	}

	out := remote.SellResult{Cost: decimal.Zero}
	if res != nil {
		out = *res
	}
	if out.Count == 0 {
		b.logger.Info("nothing to sell", slog.String("threshold", threshold.String()))
		return out, nil
	}

	b.metrics.ItemsSold("bulk", out.Count)
	b.logger.Info("bulk sold items",
		slog.Int("count", out.Count),
		slog.String("value", out.Cost.StringFixed(2)),
		slog.String("currency", string(currency)),
	)
	return out, nil
}
