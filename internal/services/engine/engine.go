package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
	"github.com/mcoot/caseclicker-orchestrator/internal/metrics"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/session"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/workunit"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// Outcome describes what one Step did
type Outcome string

const (
	// OutcomeAdvanced means a phase transition was committed
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeContinue means work was done and the phase is unchanged
	OutcomeContinue Outcome = "continue"
	// OutcomeWaiting means the account is queued for a click freeze slot
	OutcomeWaiting Outcome = "waiting"
	// OutcomeComplete means the account has reached the terminal state
	OutcomeComplete Outcome = "complete"
)

// WorkUnits bundles the work the engine delegates
type WorkUnits struct {
	Clicker   *workunit.Clicker
	CaseCycle *workunit.CaseCycle
	Seller    *workunit.BulkSeller
	Auxiliary *workunit.Auxiliary
}

// Engine drives one account through the phases.
// It runs one step at a time; no two remote calls of the same account overlap.
type Engine struct {
	accountID model.AccountID
	cfg       Config
	storage   storage.Storage
	sessions  *session.Manager
	admission *Admission
	units     WorkUnits
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	ring      *logging.Ring

	mu                  sync.Mutex
	running             bool
	iterCancel          context.CancelFunc
	wake                chan struct{}
	runID               string
	consecutiveFailures int
	lastError           string
}

// New creates a new Engine for accountID
func New(
	accountID model.AccountID,
	cfg Config,
	store storage.Storage,
	sessions *session.Manager,
	admission *Admission,
	units WorkUnits,
	clk clock.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
	ring *logging.Ring,
) *Engine {
	return &Engine{
		accountID: accountID,
		cfg:       cfg,
		storage:   store,
		sessions:  sessions,
		admission: admission,
		units:     units,
		clock:     clk,
		logger:    logger.With(slog.String("component", "engine"), slog.String("account_id", string(accountID))),
		metrics:   m,
		ring:      ring,
		running:   cfg.AutoStart,
		wake:      make(chan struct{}, 1),
	}
}

// AccountID returns the account this engine drives
func (e *Engine) AccountID() model.AccountID {
	return e.accountID
}

// Step performs one unit of progress for the account
func (e *Engine) Step(ctx context.Context) (Outcome, error) {
	account, err := e.storage.GetAccount(ctx, e.accountID)
	if err != nil {
		return "", err
	}
	e.metrics.SetPhase(phaseGauge(account))

	if account.IsComplete() {
		return OutcomeComplete, nil
	}

	api, err := e.sessions.API(e.accountID)
	if err != nil {
		return "", err
	}

	switch account.CurrentPhase {
	case model.PhaseTimedWindow:
		return e.stepTimedWindow(ctx, api, account)
	case model.PhaseLevelToGate:
		return e.stepLevelToGate(ctx, api, account)
	case model.PhaseLevelToTarget:
		return e.stepLevelToTarget(ctx, api, account)
	default:
		return "", fmt.Errorf("%w: %d", model.ErrInvalidPhase, account.CurrentPhase)
	}
}

func (e *Engine) stepTimedWindow(ctx context.Context, api remote.GameAPI, account *model.AccountState) (Outcome, error) {
	now := e.clock.Now()
	window := account.ClickFreeze

	switch {
	case window == nil:
		admitted, err := e.admission.Acquire(ctx, e.accountID)
		if err != nil {
			return "", err
		}
		if !admitted {
			return OutcomeWaiting, nil
		}
		w := model.NewTimedWindow(now, e.cfg.ClickFreezeDuration)
		if _, err := e.storage.UpsertAccount(ctx, e.accountID, model.AccountUpdate{ClickFreeze: &w}); err != nil {
			return "", err
		}
		e.logger.Info("click freeze started", slog.Time("ends_at", w.EndsAt))
		return OutcomeContinue, nil

	case window.ExpiredAt(now):
		phase := model.PhaseLevelToGate
		if _, err := e.storage.UpsertAccount(ctx, e.accountID, model.AccountUpdate{
			CurrentPhase:     &phase,
			ClearClickFreeze: true,
		}); err != nil {
			return "", err
		}
		e.committed(phase)
		if err := e.admission.Release(ctx, e.accountID); err != nil {
			e.logger.Warn("failed to release click freeze slot", slog.String("error", err.Error()))
		}
		return OutcomeAdvanced, nil

	default:
		if err := e.admission.Claim(ctx, e.accountID); err != nil {
			e.logger.Warn("failed to claim click freeze slot", slog.String("error", err.Error()))
		}
		if _, err := e.units.Clicker.Run(ctx, api, window.EndsAt); err != nil {
			return "", err
		}
		return OutcomeContinue, nil
	}
}

func (e *Engine) stepLevelToGate(ctx context.Context, api remote.GameAPI, account *model.AccountState) (Outcome, error) {
	if account.TradingUnlocked {
		return e.commitPhase(ctx, model.PhaseLevelToTarget)
	}

	synced, err := e.iterate(ctx, api, model.PhaseLevelToGate)
	if err != nil {
		return "", err
	}
	if synced.TradingUnlocked {
		return e.commitPhase(ctx, model.PhaseLevelToTarget)
	}
	return OutcomeContinue, nil
}

func (e *Engine) stepLevelToTarget(ctx context.Context, api remote.GameAPI, account *model.AccountState) (Outcome, error) {
	if account.Rank == model.TargetRank {
		return e.commitComplete(ctx)
	}

	synced, err := e.iterate(ctx, api, model.PhaseLevelToTarget)
	if err != nil {
		return "", err
	}
	if synced.Rank == model.TargetRank {
		return e.commitComplete(ctx)
	}
	return OutcomeContinue, nil
}

// iterate runs one case cycle, the optional bulk sell, auxiliary work, then syncs
func (e *Engine) iterate(ctx context.Context, api remote.GameAPI, phase model.Phase) (*session.SyncResult, error) {
	callCtx := context.WithoutCancel(ctx)

	if _, err := e.units.CaseCycle.Run(callCtx, api, e.cfg.Cycle); err != nil {
		return nil, fmt.Errorf("case cycle: %w", err)
	}

	if e.cfg.SellThreshold.IsPositive() {
		if _, err := e.units.Seller.Run(callCtx, api, e.cfg.SellThreshold, e.cfg.SellCurrency); err != nil {
			e.logger.Warn("bulk sell failed", slog.String("error", err.Error()))
		}
	}

	e.units.Auxiliary.Run(callCtx, api, phase)

	synced, err := e.sessions.Sync(callCtx, e.accountID)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	e.logger.Info("iteration finished",
		slog.Int("phase", int(phase)),
		slog.Int("level", synced.Level),
		slog.String("rank", string(synced.Rank)),
	)
	return synced, nil
}

func (e *Engine) commitPhase(ctx context.Context, next model.Phase) (Outcome, error) {
	if _, err := e.storage.UpsertAccount(ctx, e.accountID, model.AccountUpdate{CurrentPhase: &next}); err != nil {
		return "", err
	}
	e.committed(next)
	return OutcomeAdvanced, nil
}

func (e *Engine) commitComplete(ctx context.Context) (Outcome, error) {
	now := e.clock.Now()
	if _, err := e.storage.UpsertAccount(ctx, e.accountID, model.AccountUpdate{CompletedAt: &now}); err != nil {
		return "", err
	}
	e.metrics.PhaseTransition(string(model.StateComplete))
	e.metrics.SetPhase(phaseComplete)
	e.logger.Info("target rank reached, account complete")
	return OutcomeComplete, nil
}

func (e *Engine) committed(next model.Phase) {
	state := next.State()
	e.metrics.PhaseTransition(string(state))
	e.metrics.SetPhase(int(next))
	e.logger.Info("phase committed", slog.Int("phase", int(next)), slog.String("state", string(state)))
}

const phaseComplete = 4

func phaseGauge(a *model.AccountState) int {
	if a.IsComplete() {
		return phaseComplete
	}
	return int(a.CurrentPhase)
}

// Run loops Step until the account completes, ctx is done, or the failure budget runs out.
// While the run flag is cleared the loop idles until Start is called.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.runID = uuid.NewString()
	e.mu.Unlock()
	logger := e.logger.With(slog.String("run_id", e.RunID()))

	account, err := e.storage.GetAccount(ctx, e.accountID)
	if err != nil {
		return err
	}
	if account.IsComplete() {
		logger.Info("account already complete")
		return nil
	}

	if _, err := e.sessions.Sync(context.WithoutCancel(ctx), e.accountID); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	for {
		if ctx.Err() != nil {
			logger.Info("engine shutting down")
			return nil
		}

		iterCtx, cancel, ok := e.beginIteration(ctx)
		if !ok {
			select {
			case <-ctx.Done():
			case <-e.wake:
			}
			continue
		}

		done, err := e.runIteration(iterCtx, logger)
		cancel()
		if err != nil || done {
			return err
		}
	}
}

// runIteration performs one Step and the delay after it
func (e *Engine) runIteration(ctx context.Context, logger *slog.Logger) (bool, error) {
	outcome, err := e.Step(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Stopped or shutting down; not an iteration failure
			return false, nil
		}
		return false, e.recordFailure(ctx, logger, err)
	}
	e.resetFailures()

	switch outcome {
	case OutcomeComplete:
		logger.Info("account complete, nothing left to run")
		return true, nil
	case OutcomeWaiting:
		_ = e.clock.Sleep(ctx, e.cfg.QueuePollDelay)
	case OutcomeContinue:
		_ = e.clock.Sleep(ctx, e.cfg.LoopDelay)
	}
	return false, nil
}

func (e *Engine) recordFailure(ctx context.Context, logger *slog.Logger, err error) error {
	phase := "unknown"
	if account, getErr := e.storage.GetAccount(ctx, e.accountID); getErr == nil {
		phase = string(account.State())
	}

	e.mu.Lock()
	e.consecutiveFailures++
	failures := e.consecutiveFailures
	e.lastError = err.Error()
	e.mu.Unlock()

	e.metrics.LoopFailure(phase)
	logger.Error("iteration failed",
		slog.String("state", phase),
		slog.Int("consecutive_failures", failures),
		slog.String("error", err.Error()),
	)

	if e.cfg.MaxConsecutiveFailures > 0 && failures >= e.cfg.MaxConsecutiveFailures {
		return fmt.Errorf("%w: %d in a row, last: %w", model.ErrFailureBudgetExhausted, failures, err)
	}

	_ = e.clock.Sleep(ctx, e.cfg.ErrorCooldown)
	return nil
}

func (e *Engine) resetFailures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutiveFailures = 0
}

// beginIteration checks the run flag and registers the iteration's cancel func under one lock
func (e *Engine) beginIteration(ctx context.Context) (context.Context, context.CancelFunc, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil, nil, false
	}
	iterCtx, cancel := context.WithCancel(ctx)
	e.iterCancel = cancel
	return iterCtx, cancel, true
}

// Start sets the run flag
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	select {
	case e.wake <- struct{}{}:
	default:
	}
	e.logger.Info("engine started")
}

// Stop clears the run flag. The current iteration stops at its next checkpoint;
// a remote call already in flight completes.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	if e.iterCancel != nil {
		e.iterCancel()
	}
	e.logger.Info("engine stopped")
}

// Running reports the run flag
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// RunID identifies the current Run invocation
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// IsTerminal reports whether err from Run means the engine gave up
func IsTerminal(err error) bool {
	return errors.Is(err, model.ErrFailureBudgetExhausted)
}
