// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/mocks"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// Epoch is the time the suite clock starts at
var Epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Suite runs the shared storage contract against the backend built by NewStorage
type Suite struct {
	suite.Suite

	// NewStorage builds a fresh, empty backend for each test
	NewStorage func(clk clock.Clock) storage.Storage

	Clock   *mocks.MockClock
	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.Clock = mocks.NewMockClock(Epoch)
	s.Storage = s.NewStorage(s.Clock)
	s.Ctx = context.Background()
}

func ptr[T any](v T) *T {
	return &v
}

// Account tests

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.Storage.GetAccount(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestUpsertCreatesWithDefaults() {
	account, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{})
	s.Require().NoError(err)

	s.Equal(model.AccountID("acc-1"), account.ID)
	s.Equal(model.PhaseTimedWindow, account.CurrentPhase)
	s.Equal(model.RankUnranked, account.Rank)
	s.True(account.Balances.Tokens.IsZero())
	s.True(account.Balances.Money.IsZero())
	s.False(account.TradingUnlocked)
	s.Nil(account.ClickFreeze)
	s.True(account.CreatedAt.Equal(Epoch))

	stored, err := s.Storage.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal(model.PhaseTimedWindow, stored.CurrentPhase)
}

func (s *Suite) TestUpsertMergesOnlySetFields() {
	_, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{
		DisplayName: ptr("alice"),
		Level:       ptr(7),
		Balances:    &model.Balances{Tokens: decimal.NewFromInt(50), Money: decimal.RequireFromString("12.5")},
	})
	s.Require().NoError(err)

	s.Clock.Advance(time.Minute)
	account, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{Level: ptr(8)})
	s.Require().NoError(err)

	s.Equal("alice", account.DisplayName)
	s.Equal(8, account.Level)
	s.True(account.Balances.Money.Equal(decimal.RequireFromString("12.5")))
	s.True(account.CreatedAt.Equal(Epoch))
	s.True(account.LastUpdatedAt.Equal(Epoch.Add(time.Minute)))
}

func (s *Suite) TestUpsertIsIdempotent() {
	window := model.NewTimedWindow(Epoch, 48*time.Hour)
	update := model.AccountUpdate{
		DisplayName:  ptr("alice"),
		CurrentPhase: ptr(model.PhaseTimedWindow),
		Level:        ptr(12),
		Rank:         ptr(model.RankGoldNova2),
		Balances:     &model.Balances{Tokens: decimal.NewFromInt(40), Money: decimal.RequireFromString("99.95")},
		ClickFreeze:  &window,
	}

	first, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", update)
	s.Require().NoError(err)
	s.Clock.Advance(time.Minute)
	second, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", update)
	s.Require().NoError(err)

	s.True(second.LastUpdatedAt.After(first.LastUpdatedAt))

	stored, err := s.Storage.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal(s.withoutUpdateStamp(first), s.withoutUpdateStamp(second))
	s.Equal(s.withoutUpdateStamp(first), s.withoutUpdateStamp(stored))
}

// withoutUpdateStamp renders a as JSON with LastUpdatedAt zeroed
func (s *Suite) withoutUpdateStamp(a *model.AccountState) string {
	c := a.Clone()
	c.LastUpdatedAt = time.Time{}
	data, err := json.Marshal(c)
	s.Require().NoError(err)
	return string(data)
}

func (s *Suite) TestTradingUnlockedDerivedFromRank() {
	account, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{Rank: ptr(model.RankSilverEliteMaster)})
	s.Require().NoError(err)
	s.False(account.TradingUnlocked)

	account, err = s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{Rank: ptr(model.GateRank)})
	s.Require().NoError(err)
	s.True(account.TradingUnlocked)

	open, err := storage.IsGateOpen(s.Ctx, s.Storage, "acc-1")
	s.Require().NoError(err)
	s.True(open)
}

func (s *Suite) TestPhaseRegressionRejected() {
	_, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{CurrentPhase: ptr(model.PhaseLevelToTarget)})
	s.Require().NoError(err)

	_, err = s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{
		CurrentPhase: ptr(model.PhaseLevelToGate),
		Level:        ptr(99),
	})
	s.ErrorIs(err, model.ErrPhaseRegression)

	stored, err := s.Storage.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal(model.PhaseLevelToTarget, stored.CurrentPhase)
	s.Equal(0, stored.Level)
}

func (s *Suite) TestInvalidPhaseRejected() {
	_, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{CurrentPhase: ptr(model.Phase(4))})
	s.ErrorIs(err, model.ErrInvalidPhase)

	_, err = s.Storage.GetAccount(s.Ctx, "acc-1")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestInvalidWindowRejected() {
	_, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{
		ClickFreeze: &model.TimedWindow{StartedAt: Epoch, EndsAt: Epoch.Add(-time.Second)},
	})
	s.ErrorIs(err, model.ErrInvalidWindow)
}

func (s *Suite) TestWindowLifecycle() {
	window := model.NewTimedWindow(Epoch, 48*time.Hour)
	_, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{ClickFreeze: &window})
	s.Require().NoError(err)

	active, err := storage.IsWindowActive(s.Ctx, s.Storage, s.Clock, "acc-1")
	s.Require().NoError(err)
	s.True(active)

	s.Clock.Advance(48 * time.Hour)
	active, err = storage.IsWindowActive(s.Ctx, s.Storage, s.Clock, "acc-1")
	s.Require().NoError(err)
	s.False(active)

	account, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{
		CurrentPhase:     ptr(model.PhaseLevelToGate),
		ClearClickFreeze: true,
	})
	s.Require().NoError(err)
	s.Nil(account.ClickFreeze)
	s.Equal(model.PhaseLevelToGate, account.CurrentPhase)
}

func (s *Suite) TestDerivedQueriesOnUnknownAccount() {
	active, err := storage.IsWindowActive(s.Ctx, s.Storage, s.Clock, "ghost")
	s.Require().NoError(err)
	s.False(active)

	open, err := storage.IsGateOpen(s.Ctx, s.Storage, "ghost")
	s.Require().NoError(err)
	s.False(open)
}

func (s *Suite) TestReturnedAccountIsACopy() {
	window := model.NewTimedWindow(Epoch, time.Hour)
	account, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{ClickFreeze: &window})
	s.Require().NoError(err)

	account.Level = 40
	account.ClickFreeze.EndsAt = Epoch.Add(100 * time.Hour)

	stored, err := s.Storage.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal(0, stored.Level)
	s.True(stored.ClickFreeze.EndsAt.Equal(Epoch.Add(time.Hour)))
}

func (s *Suite) TestCompletedAtPersisted() {
	_, err := s.Storage.UpsertAccount(s.Ctx, "acc-1", model.AccountUpdate{
		CurrentPhase: ptr(model.PhaseLevelToTarget),
		Rank:         ptr(model.TargetRank),
		CompletedAt:  ptr(Epoch),
	})
	s.Require().NoError(err)

	stored, err := s.Storage.GetAccount(s.Ctx, "acc-1")
	s.Require().NoError(err)
	s.True(stored.IsComplete())
	s.Equal(model.StateComplete, stored.State())
}

func (s *Suite) TestListAccountsSorted() {
	for _, id := range []model.AccountID{"c", "a", "b"} {
		_, err := s.Storage.UpsertAccount(s.Ctx, id, model.AccountUpdate{})
		s.Require().NoError(err)
	}

	accounts, err := s.Storage.ListAccounts(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 3)
	s.Equal(model.AccountID("a"), accounts[0].ID)
	s.Equal(model.AccountID("b"), accounts[1].ID)
	s.Equal(model.AccountID("c"), accounts[2].ID)
}

// Global state tests

func (s *Suite) TestGlobalStateDefaults() {
	global, err := s.Storage.GetGlobalState(s.Ctx)
	s.Require().NoError(err)
	s.Empty(global.ClickFreezeQueue)
	s.Empty(global.ActiveClickFreeze)
	s.NotNil(global.ClickFreezeQueue)
	s.Nil(global.LastSyncAt)
}

func (s *Suite) TestUpsertGlobalState() {
	queue := []model.AccountID{"b", "c", "b"}
	global, err := s.Storage.UpsertGlobalState(s.Ctx, model.GlobalUpdate{ClickFreezeQueue: &queue})
	s.Require().NoError(err)
	s.Equal([]model.AccountID{"b", "c"}, global.ClickFreezeQueue)
	s.Require().NotNil(global.LastSyncAt)
	s.True(global.LastSyncAt.Equal(Epoch))

	active := []model.AccountID{"a"}
	s.Clock.Advance(time.Second)
	_, err = s.Storage.UpsertGlobalState(s.Ctx, model.GlobalUpdate{ActiveClickFreeze: &active})
	s.Require().NoError(err)

	stored, err := s.Storage.GetGlobalState(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]model.AccountID{"b", "c"}, stored.ClickFreezeQueue)
	s.Equal([]model.AccountID{"a"}, stored.ActiveClickFreeze)
	s.True(stored.IsActive("a"))
	s.Equal(1, stored.QueuePosition("c"))
	s.True(stored.LastSyncAt.Equal(Epoch.Add(time.Second)))
}
