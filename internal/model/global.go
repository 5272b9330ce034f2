package model

import (
	"slices"
	"time"
)

// GlobalState is the singleton automation record shared by all accounts
type GlobalState struct {
	// Accounts waiting for a click freeze slot, in arrival order
	ClickFreezeQueue []AccountID `json:"clickFreezeQueue"`
	// Accounts currently inside a click freeze window
	ActiveClickFreeze []AccountID `json:"activeClickFreeze"`
	LastSyncAt        *time.Time  `json:"lastSync,omitempty"`
}

// Clone returns a deep copy of the global state
func (g *GlobalState) Clone() *GlobalState {
	c := &GlobalState{
		ClickFreezeQueue:  slices.Clone(g.ClickFreezeQueue),
		ActiveClickFreeze: slices.Clone(g.ActiveClickFreeze),
	}
	if g.LastSyncAt != nil {
		t := *g.LastSyncAt
		c.LastSyncAt = &t
	}
	if c.ClickFreezeQueue == nil {
		c.ClickFreezeQueue = []AccountID{}
	}
	if c.ActiveClickFreeze == nil {
		c.ActiveClickFreeze = []AccountID{}
	}
	return c
}

// IsActive reports whether id holds a click freeze slot
func (g *GlobalState) IsActive(id AccountID) bool {
	return slices.Contains(g.ActiveClickFreeze, id)
}

// QueuePosition returns the index of id in the queue, or -1
func (g *GlobalState) QueuePosition(id AccountID) int {
	return slices.Index(g.ClickFreezeQueue, id)
}

// GlobalUpdate is a partial write to the GlobalState
type GlobalUpdate struct {
	ClickFreezeQueue  *[]AccountID
	ActiveClickFreeze *[]AccountID
}
