package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountID identifies an account in the credential store and the state store
type AccountID string

// Phase is the persisted progression stage of an account
type Phase int

const (
	PhaseTimedWindow   Phase = 1 // Click freeze window
	PhaseLevelToGate   Phase = 2 // Open cases until trading unlocks
	PhaseLevelToTarget Phase = 3 // Open cases until the target rank
)

// Valid reports whether p is a persistable phase
func (p Phase) Valid() bool {
	return p >= PhaseTimedWindow && p <= PhaseLevelToTarget
}

// State is the engine-level view of an account, including the terminal state
type State string

const (
	StateTimedWindow   State = "timed_window"
	StateLevelToGate   State = "level_to_gate"
	StateLevelToTarget State = "level_to_target"
	StateComplete      State = "complete"
)

// Balances holds the in-game currencies
type Balances struct {
	Tokens decimal.Decimal `json:"tokens"`
	Money  decimal.Decimal `json:"money"`
}

// TimedWindow is the click freeze interval of phase 1
type TimedWindow struct {
	StartedAt time.Time `json:"startedAt"`
	EndsAt    time.Time `json:"endsAt"`
}

// NewTimedWindow returns a window starting at start and lasting d
func NewTimedWindow(start time.Time, d time.Duration) TimedWindow {
	return TimedWindow{StartedAt: start, EndsAt: start.Add(d)}
}

// ActiveAt reports whether the window is still running at now
func (w *TimedWindow) ActiveAt(now time.Time) bool {
	return w != nil && now.Before(w.EndsAt)
}

// ExpiredAt reports whether the window existed and has ended at now
func (w *TimedWindow) ExpiredAt(now time.Time) bool {
	return w != nil && !now.Before(w.EndsAt)
}

// Remaining returns the time left in the window, or zero once it has ended
func (w *TimedWindow) Remaining(now time.Time) time.Duration {
	if !w.ActiveAt(now) {
		return 0
	}
	return w.EndsAt.Sub(now)
}

// AccountState is the durable progression record of one account
type AccountState struct {
	ID           AccountID `json:"id"`
	DisplayName  string    `json:"displayName"`
	CurrentPhase Phase     `json:"currentPhase"`
	Level        int       `json:"level"`
	Rank         Rank      `json:"rank"`
	Balances     Balances  `json:"balances"`

	// Derived from Rank on every write, never set directly
	TradingUnlocked bool `json:"tradingUnlocked"`

	// Present only while the phase 1 window is in use
	ClickFreeze *TimedWindow `json:"clickFreeze,omitempty"`

	// Set once the target rank has been committed
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// NewAccountState returns a fresh record with default values
func NewAccountState(id AccountID, now time.Time) *AccountState {
	return &AccountState{
		ID:            id,
		CurrentPhase:  PhaseTimedWindow,
		Rank:          RankUnranked,
		Balances:      Balances{Tokens: decimal.Zero, Money: decimal.Zero},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// State derives the engine state from the persisted fields
func (a *AccountState) State() State {
	if a.CompletedAt != nil {
		return StateComplete
	}
	return a.CurrentPhase.State()
}

// State maps a persisted phase to its engine state
func (p Phase) State() State {
	switch p {
	case PhaseLevelToGate:
		return StateLevelToGate
	case PhaseLevelToTarget:
		return StateLevelToTarget
	default:
		return StateTimedWindow
	}
}

// IsComplete returns true once the terminal state has been committed
func (a *AccountState) IsComplete() bool {
	return a.CompletedAt != nil
}

// Clone returns a deep copy of the record
func (a *AccountState) Clone() *AccountState {
	c := *a
	if a.ClickFreeze != nil {
		w := *a.ClickFreeze
		c.ClickFreeze = &w
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// AccountUpdate is a partial write to an AccountState.
// Nil fields are left untouched; set fields overwrite the stored value wholesale.
type AccountUpdate struct {
	DisplayName  *string
	CurrentPhase *Phase
	Level        *int
	Rank         *Rank
	Balances     *Balances
	ClickFreeze  *TimedWindow
	CompletedAt  *time.Time

	// ClearClickFreeze removes the stored window; it wins over ClickFreeze
	ClearClickFreeze bool
}
