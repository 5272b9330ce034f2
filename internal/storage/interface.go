package storage

import (
	"context"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

// Storage defines the interface for durable progression state.
// Every write persists a complete, self-consistent document before returning.
type Storage interface {
	// Account operations
	GetAccount(ctx context.Context, id model.AccountID) (*model.AccountState, error)
	UpsertAccount(ctx context.Context, id model.AccountID, update model.AccountUpdate) (*model.AccountState, error)
	ListAccounts(ctx context.Context) ([]*model.AccountState, error)

	// Global state operations
	GetGlobalState(ctx context.Context) (*model.GlobalState, error)
	UpsertGlobalState(ctx context.Context, update model.GlobalUpdate) (*model.GlobalState, error)
}
