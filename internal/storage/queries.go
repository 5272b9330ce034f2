package storage

import (
	"context"
	"errors"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

// IsWindowActive reports whether the account has a click freeze window that has not ended.
// Expiry is evaluated against the clock on every call; no timer is involved.
func IsWindowActive(ctx context.Context, s Storage, clk clock.Clock, id model.AccountID) (bool, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.ClickFreeze.ActiveAt(clk.Now()), nil
}

// IsGateOpen reads the derived trading gate of the account
func IsGateOpen(ctx context.Context, s Storage, id model.AccountID) (bool, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.TradingUnlocked, nil
}
