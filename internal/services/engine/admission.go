package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// Admission bounds how many accounts occupy their click freeze window at once.
// Every decision re-reads the global state; concurrent writers resolve last-write-wins.
type Admission struct {
	storage       storage.Storage
	clock         clock.Clock
	maxConcurrent int
	logger        *slog.Logger
}

// NewAdmission creates a new Admission
func NewAdmission(store storage.Storage, clk clock.Clock, maxConcurrent int, logger *slog.Logger) *Admission {
	return &Admission{
		storage:       store,
		clock:         clk,
		maxConcurrent: maxConcurrent,
		logger:        logger.With(slog.String("component", "admission")),
	}
}

// Acquire admits id when a slot is free and no earlier arrival is waiting for it.
// Otherwise id is queued and false is returned.
func (a *Admission) Acquire(ctx context.Context, id model.AccountID) (bool, error) {
	global, err := a.storage.GetGlobalState(ctx)
	if err != nil {
		return false, err
	}

	active, err := a.prune(ctx, global.ActiveClickFreeze, true)
	if err != nil {
		return false, err
	}
	queue, err := a.prune(ctx, global.ClickFreezeQueue, false)
	if err != nil {
		return false, err
	}
	queue = slices.DeleteFunc(queue, func(q model.AccountID) bool { return slices.Contains(active, q) })

	admitted := slices.Contains(active, id)
	if !admitted {
		pos := slices.Index(queue, id)
		if pos < 0 {
			queue = append(queue, id)
			pos = len(queue) - 1
		}
		free := a.maxConcurrent - len(active)
		if a.maxConcurrent <= 0 || pos < free {
			queue = slices.Delete(queue, pos, pos+1)
			active = append(active, id)
			admitted = true
		}
	}

	if !slices.Equal(active, global.ActiveClickFreeze) || !slices.Equal(queue, global.ClickFreezeQueue) {
		if _, err := a.storage.UpsertGlobalState(ctx, model.GlobalUpdate{
			ClickFreezeQueue:  &queue,
			ActiveClickFreeze: &active,
		}); err != nil {
			return false, err
		}
	}

	if admitted {
		a.logger.Info("admitted to click freeze",
			slog.String("account_id", string(id)),
			slog.Int("active", len(active)),
			slog.Int("max", a.maxConcurrent),
		)
	} else {
		a.logger.Info("waiting for click freeze slot",
			slog.String("account_id", string(id)),
			slog.Int("position", slices.Index(queue, id)+1),
			slog.Int("active", len(active)),
		)
	}
	return admitted, nil
}

// Claim marks id as active for a window that is already running on the remote.
// The window cannot be refused, so exceeding the cap is logged rather than rejected.
func (a *Admission) Claim(ctx context.Context, id model.AccountID) error {
	global, err := a.storage.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if global.IsActive(id) && global.QueuePosition(id) < 0 {
		return nil
	}

	active, err := a.prune(ctx, global.ActiveClickFreeze, true)
	if err != nil {
		return err
	}
	if !slices.Contains(active, id) {
		active = append(active, id)
	}
	queue := slices.DeleteFunc(global.ClickFreezeQueue, func(q model.AccountID) bool { return q == id })
	if _, err := a.storage.UpsertGlobalState(ctx, model.GlobalUpdate{
		ClickFreezeQueue:  &queue,
		ActiveClickFreeze: &active,
	}); err != nil {
		return err
	}

	if a.maxConcurrent > 0 && len(active) > a.maxConcurrent {
		a.logger.Warn("claimed click freeze over capacity",
			slog.String("account_id", string(id)),
			slog.Int("active", len(active)),
			slog.Int("max", a.maxConcurrent),
		)
	} else {
		a.logger.Info("claimed running click freeze",
			slog.String("account_id", string(id)),
			slog.Int("active", len(active)),
		)
	}
	return nil
}

// Release frees the slot held by id and drops it from the queue
func (a *Admission) Release(ctx context.Context, id model.AccountID) error {
	global, err := a.storage.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if !global.IsActive(id) && global.QueuePosition(id) < 0 {
		return nil
	}

	isID := func(q model.AccountID) bool { return q == id }
	active := slices.DeleteFunc(global.ActiveClickFreeze, isID)
	queue := slices.DeleteFunc(global.ClickFreezeQueue, isID)
	if _, err := a.storage.UpsertGlobalState(ctx, model.GlobalUpdate{
		ClickFreezeQueue:  &queue,
		ActiveClickFreeze: &active,
	}); err != nil {
		return err
	}
	a.logger.Info("released click freeze slot", slog.String("account_id", string(id)))
	return nil
}

// prune drops ids that no longer belong in the set: unknown accounts, accounts past phase 1,
// and, for the active set, accounts whose window has expired
func (a *Admission) prune(ctx context.Context, ids []model.AccountID, activeSet bool) ([]model.AccountID, error) {
	now := a.clock.Now()
	out := make([]model.AccountID, 0, len(ids))
	for _, id := range ids {
		account, err := a.storage.GetAccount(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		if account.CurrentPhase != model.PhaseTimedWindow || account.IsComplete() {
			continue
		}
		if activeSet && account.ClickFreeze.ExpiredAt(now) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
