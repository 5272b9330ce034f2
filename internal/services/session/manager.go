package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/caseclicker-orchestrator/internal/credentials"
	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// APIFactory builds a remote API bound to a session token
type APIFactory func(token string) remote.GameAPI

// SyncResult is the snapshot merged into the store by Sync
type SyncResult struct {
	Level           int
	Rank            model.Rank
	Balances        model.Balances
	TradingUnlocked bool
	// GateOpened is true when this sync flipped the trading gate open
	GateOpened bool
}

// Manager binds accounts to their remote API and keeps the store in line with the remote profile
type Manager struct {
	storage     storage.Storage
	credentials credentials.Store
	newAPI      APIFactory
	clock       clock.Clock
	logger      *slog.Logger

	mu   sync.RWMutex
	apis map[model.AccountID]remote.GameAPI
}

// NewManager creates a new session Manager
func NewManager(store storage.Storage, creds credentials.Store, newAPI APIFactory, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		storage:     store,
		credentials: creds,
		newAPI:      newAPI,
		clock:       clk,
		logger:      logger.With(slog.String("component", "session-manager")),
		apis:        make(map[model.AccountID]remote.GameAPI),
	}
}

// Initialize binds a remote API to the account's credential and makes sure a store record exists
func (m *Manager) Initialize(ctx context.Context, id model.AccountID) (*model.AccountState, error) {
	cred, err := m.credentials.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	api := m.newAPI(cred.Token)

	account, err := m.storage.GetAccount(ctx, id)
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		account, err = m.storage.UpsertAccount(ctx, id, model.AccountUpdate{DisplayName: &cred.DisplayName})
		if err != nil {
			return nil, fmt.Errorf("create account record: %w", err)
		}
		m.logger.Info("created account record", slog.String("account_id", string(id)))
	case err != nil:
		return nil, err
	case cred.DisplayName != "" && account.DisplayName != cred.DisplayName:
		account, err = m.storage.UpsertAccount(ctx, id, model.AccountUpdate{DisplayName: &cred.DisplayName})
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.apis[id] = api
	m.mu.Unlock()

	m.logger.Info("account initialized",
		slog.String("account_id", string(id)),
		slog.Int("phase", int(account.CurrentPhase)),
		slog.String("rank", string(account.Rank)),
	)
	return account, nil
}

// API returns the remote API bound by Initialize
func (m *Manager) API(id model.AccountID) (remote.GameAPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	api, ok := m.apis[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrAccountNotInitialized, id)
	}
	return api, nil
}

// Sync fetches the remote profile and merges level, rank and balances in a single write.
// A failed fetch leaves the store untouched.
func (m *Manager) Sync(ctx context.Context, id model.AccountID) (*SyncResult, error) {
	api, err := m.API(id)
	if err != nil {
		return nil, err
	}

	before, err := m.storage.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	profile, err := api.Me(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateProfile(profile); err != nil {
		m.logger.Warn("rejected remote snapshot",
			slog.String("account_id", string(id)),
			slog.Int("level", profile.Level),
			slog.String("tokens", profile.Tokens.String()),
			slog.String("money", profile.Money.String()),
		)
		return nil, err
	}

	rank := model.ParseRank(profile.Rank)
	if !rank.Known() {
		m.logger.Warn("unrecognized rank, treating as lowest",
			slog.String("account_id", string(id)),
			slog.String("rank", profile.Rank),
		)
	}
	balances := model.Balances{Tokens: profile.Tokens, Money: profile.Money}

	after, err := m.storage.UpsertAccount(ctx, id, model.AccountUpdate{
		Level:    &profile.Level,
		Rank:     &rank,
		Balances: &balances,
	})
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Level:           after.Level,
		Rank:            after.Rank,
		Balances:        after.Balances,
		TradingUnlocked: after.TradingUnlocked,
		GateOpened:      after.TradingUnlocked && !before.TradingUnlocked,
	}

	m.logger.Debug("synced account state",
		slog.String("account_id", string(id)),
		slog.Int("level", result.Level),
		slog.String("rank", string(result.Rank)),
		slog.String("tokens", result.Balances.Tokens.String()),
		slog.String("money", result.Balances.Money.String()),
	)
	if result.GateOpened {
		m.logger.Info("trading unlocked", slog.String("account_id", string(id)), slog.String("rank", string(result.Rank)))
	}
	return result, nil
}

// validateProfile rejects the whole snapshot rather than merging part of it
func validateProfile(p *remote.Profile) error {
	switch {
	case p.Level < 0:
		return fmt.Errorf("%w: level %d", model.ErrInvalidSnapshot, p.Level)
	case p.Tokens.IsNegative():
		return fmt.Errorf("%w: tokens %s", model.ErrInvalidSnapshot, p.Tokens)
	case p.Money.IsNegative():
		return fmt.Errorf("%w: money %s", model.ErrInvalidSnapshot, p.Money)
	}
	return nil
}

// IsGateOpen passes through to the store's derived gate
func (m *Manager) IsGateOpen(ctx context.Context, id model.AccountID) (bool, error) {
	return storage.IsGateOpen(ctx, m.storage, id)
}

// IsWindowActive passes through to the store's derived window check
func (m *Manager) IsWindowActive(ctx context.Context, id model.AccountID) (bool, error) {
	return storage.IsWindowActive(ctx, m.storage, m.clock, id)
}
