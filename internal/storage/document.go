package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

// Document is the whole persisted layout shared by every backend
type Document struct {
	Accounts    map[model.AccountID]*model.AccountState `json:"accounts"`
	GlobalState model.GlobalState                       `json:"globalState"`
}

// NewDocument returns an empty document
func NewDocument() *Document {
	return &Document{
		Accounts: make(map[model.AccountID]*model.AccountState),
		GlobalState: model.GlobalState{
			ClickFreezeQueue:  []model.AccountID{},
			ActiveClickFreeze: []model.AccountID{},
		},
	}
}

// normalize fills in fields a decoded document may be missing
func (d *Document) normalize() {
	if d.Accounts == nil {
		d.Accounts = make(map[model.AccountID]*model.AccountState)
	}
	if d.GlobalState.ClickFreezeQueue == nil {
		d.GlobalState.ClickFreezeQueue = []model.AccountID{}
	}
	if d.GlobalState.ActiveClickFreeze == nil {
		d.GlobalState.ActiveClickFreeze = []model.AccountID{}
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	c := &Document{
		Accounts:    make(map[model.AccountID]*model.AccountState, len(d.Accounts)),
		GlobalState: *d.GlobalState.Clone(),
	}
	for id, a := range d.Accounts {
		c.Accounts[id] = a.Clone()
	}
	return c
}

// Account returns a copy of the stored account or ErrAccountNotFound
func (d *Document) Account(id model.AccountID) (*model.AccountState, error) {
	a, ok := d.Accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// AccountList returns copies of all accounts ordered by id
func (d *Document) AccountList() []*model.AccountState {
	out := make([]*model.AccountState, 0, len(d.Accounts))
	for _, a := range d.Accounts {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ApplyAccount merges update into the account, creating it with defaults if absent.
// The document is left untouched when the update is rejected.
func (d *Document) ApplyAccount(id model.AccountID, update model.AccountUpdate, now time.Time) (*model.AccountState, error) {
	current, ok := d.Accounts[id]
	var next *model.AccountState
	if ok {
		next = current.Clone()
	} else {
		next = model.NewAccountState(id, now)
	}

	if update.DisplayName != nil {
		next.DisplayName = *update.DisplayName
	}
	if update.CurrentPhase != nil {
		phase := *update.CurrentPhase
		if !phase.Valid() {
			return nil, fmt.Errorf("%w: %d", model.ErrInvalidPhase, phase)
		}
		if phase < next.CurrentPhase {
			return nil, fmt.Errorf("%w: %d -> %d", model.ErrPhaseRegression, next.CurrentPhase, phase)
		}
		next.CurrentPhase = phase
	}
	if update.Level != nil {
		next.Level = *update.Level
	}
	if update.Rank != nil {
		next.Rank = *update.Rank
	}
	if update.Balances != nil {
		next.Balances = *update.Balances
	}
	if update.ClickFreeze != nil {
		if update.ClickFreeze.EndsAt.Before(update.ClickFreeze.StartedAt) {
			return nil, model.ErrInvalidWindow
		}
		w := *update.ClickFreeze
		next.ClickFreeze = &w
	}
	if update.ClearClickFreeze {
		next.ClickFreeze = nil
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		next.CompletedAt = &t
	}

	next.TradingUnlocked = model.TradingUnlocked(next.Rank)
	next.LastUpdatedAt = now

	d.Accounts[id] = next
	return next.Clone(), nil
}

// ApplyGlobal merges update into the global state and stamps the sync time
func (d *Document) ApplyGlobal(update model.GlobalUpdate, now time.Time) *model.GlobalState {
	if update.ClickFreezeQueue != nil {
		d.GlobalState.ClickFreezeQueue = dedupe(*update.ClickFreezeQueue)
	}
	if update.ActiveClickFreeze != nil {
		d.GlobalState.ActiveClickFreeze = dedupe(*update.ActiveClickFreeze)
	}
	t := now
	d.GlobalState.LastSyncAt = &t
	return d.GlobalState.Clone()
}

// dedupe keeps the first occurrence of each id, preserving order
func dedupe(ids []model.AccountID) []model.AccountID {
	out := make([]model.AccountID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// DecodeDocument parses a persisted document
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.normalize()
	for id, a := range doc.Accounts {
		if a == nil {
			delete(doc.Accounts, id)
			continue
		}
		if a.ID == "" {
			a.ID = id
		}
	}
	return &doc, nil
}
