package workunit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/mocks"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newClicker(clk *mocks.MockClock, cooldown time.Duration) *Clicker {
	cfg := DefaultClickerConfig()
	cfg.RateLimitCooldown = cooldown
	return NewClicker(cfg, clk, testutil.NopLogger(), nil)
}

// Clicker tests

func TestClickerRunsUntilDeadline(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	api := &mocks.MockGameAPI{}

	result, err := newClicker(clk, time.Second).Run(context.Background(), api, epoch.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Clicks)
	assert.Equal(t, 0, result.Failures)
	assert.Equal(t, 10, api.Clicks())
	assert.False(t, clk.Now().Before(epoch.Add(time.Second)))
}

func TestClickerPastDeadlineDoesNothing(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	api := &mocks.MockGameAPI{}

	result, err := newClicker(clk, time.Second).Run(context.Background(), api, epoch.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Clicks)
	assert.Equal(t, 0, api.TotalCalls())
}

func TestClickerRateLimitCooldown(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	calls := 0
	api := &mocks.MockGameAPI{
		ClickFunc: func(ctx context.Context) error {
			calls++
			if calls == 3 {
				return &remote.RemoteError{StatusCode: 429, RateLimited: true}
			}
			return nil
		},
	}

	result, err := newClicker(clk, 500*time.Millisecond).Run(context.Background(), api, epoch.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Clicks)
	assert.Equal(t, 1, result.Failures)

	ms := time.Millisecond
	assert.Equal(t, []time.Duration{100 * ms, 100 * ms, 500 * ms, 100 * ms, 100 * ms, 100 * ms}, clk.Sleeps())
}

func TestClickerCooldownFollowsClientClassification(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	calls := 0
	api := &mocks.MockGameAPI{
		ClickFunc: func(ctx context.Context) error {
			calls++
			if calls == 1 {
				// a 429 the client did not classify as rate limited
				return &remote.RemoteError{StatusCode: 429}
			}
			return nil
		},
	}

	_, err := newClicker(clk, 500*time.Millisecond).Run(context.Background(), api, epoch.Add(300*time.Millisecond))
	require.NoError(t, err)
	assert.NotContains(t, clk.Sleeps(), 500*time.Millisecond)
}

func TestClickerContinuesAfterFailure(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	api := &mocks.MockGameAPI{
		ClickFunc: func(ctx context.Context) error {
			return &remote.RemoteError{StatusCode: 500}
		},
	}

	result, err := newClicker(clk, time.Hour).Run(context.Background(), api, epoch.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Failures)
	assert.Equal(t, 0, result.Clicks)
}

func TestClickerStopsBetweenClicks(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &mocks.MockGameAPI{}
	api.ClickFunc = func(callCtx context.Context) error {
		assert.NoError(t, callCtx.Err(), "in-flight click is never cancelled")
		if api.Clicks() == 3 {
			cancel()
		}
		return nil
	}

	result, err := newClicker(clk, time.Second).Run(ctx, api, epoch.Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, result.Clicks)
	assert.Equal(t, 3, api.Clicks())
}

// Case cycle tests

func cycleConfig() CycleConfig {
	return CycleConfig{CaseID: "case-a", BatchSize: 100, AutoOpen: remote.DefaultAutoOpenConfig()}
}

func owning(amount int) func(context.Context) ([]remote.OwnedCase, error) {
	return func(ctx context.Context) ([]remote.OwnedCase, error) {
		return []remote.OwnedCase{{ID: "other", Amount: 999}, {ID: "case-a", Amount: amount}}, nil
	}
}

func TestCaseCycleBuysShortfall(t *testing.T) {
	api := &mocks.MockGameAPI{OwnedCasesFunc: owning(50)}

	result, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	require.NoError(t, err)

	assert.Equal(t, []mocks.BuyCall{{CaseID: "case-a", Amount: 50}}, api.Buys())
	opens := api.Opens()
	require.Len(t, opens, 1)
	assert.Equal(t, 100, opens[0].Count)
	assert.Equal(t, "case-a", opens[0].CaseID)
	assert.True(t, opens[0].Config.AutosellActivated)

	assert.Equal(t, 50, result.Owned)
	assert.Equal(t, 50, result.Purchased)
	assert.Equal(t, 100, result.Opened)
}

func TestCaseCycleSkipsPurchaseWhenStocked(t *testing.T) {
	api := &mocks.MockGameAPI{OwnedCasesFunc: owning(250)}

	result, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	require.NoError(t, err)
	assert.Empty(t, api.Buys())
	assert.Equal(t, 100, result.Opened)
	assert.Equal(t, 0, result.Purchased)
}

func TestCaseCycleAggregatesResult(t *testing.T) {
	api := &mocks.MockGameAPI{
		OwnedCasesFunc: owning(100),
		OpenCasesFunc: func(ctx context.Context, caseID string, count int, cfg remote.AutoOpenConfig) (*remote.OpenResult, error) {
			return &remote.OpenResult{
				Skins: []remote.Skin{
					{Price: decimal.RequireFromString("1.25")},
					{Price: decimal.RequireFromString("3.50")},
				},
				AutoSellInfo: &remote.SellResult{Count: 97, Cost: decimal.RequireFromString("88.10")},
			}, nil
		},
	}

	result, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	require.NoError(t, err)
	assert.True(t, result.OpenedValue.Equal(decimal.RequireFromString("4.75")))
	assert.Equal(t, 97, result.AutoSoldCount)
	assert.True(t, result.AutoSoldValue.Equal(decimal.RequireFromString("88.10")))
}

func TestCaseCyclePurchaseFailureFallsBackToOwnedStock(t *testing.T) {
	buyErr := &remote.RemoteError{StatusCode: 400, Body: "not enough money"}
	api := &mocks.MockGameAPI{
		OwnedCasesFunc: owning(30),
		BuyCasesFunc: func(ctx context.Context, caseID string, amount int) error {
			return buyErr
		},
	}

	result, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, result.PurchaseErr, buyErr)
	require.Len(t, api.Opens(), 1)
	assert.Equal(t, 30, api.Opens()[0].Count)
	assert.Equal(t, 30, result.Opened)
}

func TestCaseCyclePurchaseFailureWithoutStock(t *testing.T) {
	buyErr := &remote.RemoteError{StatusCode: 400}
	api := &mocks.MockGameAPI{
		OwnedCasesFunc: owning(0),
		BuyCasesFunc: func(ctx context.Context, caseID string, amount int) error {
			return buyErr
		},
	}

	_, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	assert.ErrorIs(t, err, buyErr)
	assert.Empty(t, api.Opens())
}

func TestCaseCycleOpenFailurePropagates(t *testing.T) {
	openErr := &remote.RemoteError{StatusCode: 500}
	api := &mocks.MockGameAPI{
		OwnedCasesFunc: owning(100),
		OpenCasesFunc: func(ctx context.Context, caseID string, count int, cfg remote.AutoOpenConfig) (*remote.OpenResult, error) {
			return nil, openErr
		},
	}

	_, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	assert.ErrorIs(t, err, openErr)
}

func TestCaseCycleOwnedQueryFailure(t *testing.T) {
	listErr := errors.New("boom")
	api := &mocks.MockGameAPI{
		OwnedCasesFunc: func(ctx context.Context) ([]remote.OwnedCase, error) {
			return nil, listErr
		},
	}

	_, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), api, cycleConfig())
	assert.ErrorIs(t, err, listErr)
	assert.Empty(t, api.Buys())
}

func TestCaseCycleRejectsEmptyBatch(t *testing.T) {
	cfg := cycleConfig()
	cfg.BatchSize = 0
	_, err := NewCaseCycle(testutil.NopLogger(), nil).Run(context.Background(), &mocks.MockGameAPI{}, cfg)
	assert.Error(t, err)
}

// Bulk seller tests

func TestBulkSellerNothingToSell(t *testing.T) {
	api := &mocks.MockGameAPI{
		SellInventoryFunc: func(ctx context.Context, threshold decimal.Decimal, currency remote.Currency) (*remote.SellResult, error) {
			return &remote.SellResult{Count: 0}, nil
		},
	}

	result, err := NewBulkSeller(testutil.NopLogger(), nil).Run(context.Background(), api, decimal.NewFromInt(100), remote.CurrencyMoney)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.True(t, result.Cost.IsZero())
}

func TestBulkSellerReportsSale(t *testing.T) {
	api := &mocks.MockGameAPI{
		SellInventoryFunc: func(ctx context.Context, threshold decimal.Decimal, currency remote.Currency) (*remote.SellResult, error) {
			return &remote.SellResult{Count: 12, Cost: decimal.RequireFromString("45.5")}, nil
		},
	}

	result, err := NewBulkSeller(testutil.NopLogger(), nil).Run(context.Background(), api, decimal.NewFromInt(100), remote.CurrencyTokens)
	require.NoError(t, err)
	assert.Equal(t, 12, result.Count)
	require.Len(t, api.Sells(), 1)
	assert.Equal(t, remote.CurrencyTokens, api.Sells()[0].Currency)
}

func TestBulkSellerFailure(t *testing.T) {
	sellErr := &remote.RemoteError{StatusCode: 500}
	api := &mocks.MockGameAPI{
		SellInventoryFunc: func(ctx context.Context, threshold decimal.Decimal, currency remote.Currency) (*remote.SellResult, error) {
			return nil, sellErr
		},
	}

	_, err := NewBulkSeller(testutil.NopLogger(), nil).Run(context.Background(), api, decimal.NewFromInt(100), remote.CurrencyMoney)
	assert.ErrorIs(t, err, sellErr)
}

// Auxiliary tests

func TestAuxiliarySkipsUnsupported(t *testing.T) {
	api := &mocks.MockGameAPI{}
	aux := NewAuxiliary(testutil.NopLogger())

	assert.Equal(t, 0, aux.Run(context.Background(), api, model.PhaseLevelToGate))
	assert.Equal(t, []string{"missions", "rewards"}, api.AuxCalls())
}

func TestAuxiliaryPhaseThreeIncludesSkillmap(t *testing.T) {
	api := &mocks.MockGameAPI{
		MissionsFunc: func(ctx context.Context) error { return nil },
		ClaimRewardsFunc: func(ctx context.Context) error {
			return &remote.RemoteError{StatusCode: 500}
		},
	}
	aux := NewAuxiliary(testutil.NopLogger())

	assert.Equal(t, 1, aux.Run(context.Background(), api, model.PhaseLevelToTarget))
	assert.Equal(t, []string{"missions", "rewards", "skillmap"}, api.AuxCalls())
}
