package engine

import (
	"context"
	"time"

	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

// Status is the read-only view exposed to operators
type Status struct {
	AccountID       model.AccountID    `json:"accountId"`
	DisplayName     string             `json:"displayName"`
	Phase           model.Phase        `json:"phase"`
	State           model.State        `json:"state"`
	Rank            model.Rank         `json:"rank"`
	Level           int                `json:"level"`
	Balances        model.Balances     `json:"balances"`
	TradingUnlocked bool               `json:"tradingUnlocked"`
	ClickFreeze     *model.TimedWindow `json:"clickFreeze,omitempty"`
	WindowRemaining time.Duration      `json:"windowRemainingNs,omitempty"`
	QueuePosition   int                `json:"queuePosition,omitempty"`
	Running         bool               `json:"running"`
	RunID           string             `json:"runId,omitempty"`
	Failures        int                `json:"consecutiveFailures"`
	LastError       string             `json:"lastError,omitempty"`
	RecentLogs      []logging.Entry    `json:"recentLogs"`
}

// Status reads the persisted record and the engine's run state. It makes no remote calls.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	account, err := e.storage.GetAccount(ctx, e.accountID)
	if err != nil {
		return nil, err
	}
	global, err := e.storage.GetGlobalState(ctx)
	if err != nil {
		return nil, err
	}

	st := BuildStatus(account, global, e.clock.Now())

	e.mu.Lock()
	st.Running = e.running
	st.RunID = e.runID
	st.Failures = e.consecutiveFailures
	st.LastError = e.lastError
	e.mu.Unlock()

	if e.ring != nil {
		st.RecentLogs = e.ring.Entries()
	}
	return st, nil
}

// BuildStatus derives the status view from persisted state alone
func BuildStatus(account *model.AccountState, global *model.GlobalState, now time.Time) *Status {
	return &Status{
		AccountID:       account.ID,
		DisplayName:     account.DisplayName,
		Phase:           account.CurrentPhase,
		State:           account.State(),
		Rank:            account.Rank,
		Level:           account.Level,
		Balances:        account.Balances,
		TradingUnlocked: account.TradingUnlocked,
		ClickFreeze:     account.ClickFreeze,
		WindowRemaining: account.ClickFreeze.Remaining(now),
		QueuePosition:   global.QueuePosition(account.ID) + 1,
		RecentLogs:      []logging.Entry{},
	}
}
