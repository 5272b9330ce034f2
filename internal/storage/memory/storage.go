package memory

import (
	"context"
	"sync"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	doc   *storage.Document
	clock clock.Clock
}

// New creates a new in-memory storage instance
func New(clk clock.Clock) *Storage {
	return &Storage{
		doc:   storage.NewDocument(),
		clock: clk,
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.AccountState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Account(id)
}

func (s *Storage) UpsertAccount(ctx context.Context, id model.AccountID, update model.AccountUpdate) (*model.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ApplyAccount(id, update, s.clock.Now())
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.AccountState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.AccountList(), nil
}

// Global state operations

func (s *Storage) GetGlobalState(ctx context.Context) (*model.GlobalState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.GlobalState.Clone(), nil
}

func (s *Storage) UpsertGlobalState(ctx context.Context, update model.GlobalUpdate) (*model.GlobalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ApplyGlobal(update, s.clock.Now()), nil
}
