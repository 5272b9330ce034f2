package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// Storage keeps the state document on disk. Every read loads the file; every write reloads it
// under an exclusive file lock, applies the change and replaces the file, so several processes
// can share one document.
type Storage struct {
	mu    sync.Mutex
	path  string
	lock  *flock.Flock
	clock clock.Clock
}

// lockRetryDelay is the poll interval while another process holds the lock
const lockRetryDelay = 20 * time.Millisecond

// New checks the document at cfg.Path. A missing file starts an empty store;
// an unreadable or corrupt file is an error.
func New(cfg Config, clk clock.Clock) (*Storage, error) {
	if _, err := load(cfg.Path); err != nil {
		return nil, err
	}
	return &Storage{
		path:  cfg.Path,
		lock:  flock.New(cfg.Path + ".lock"),
		clock: clk,
	}, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Path returns the location of the state document
func (s *Storage) Path() string {
	return s.path
}

// Account operations

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.AccountState, error) {
	doc, err := load(s.path)
	if err != nil {
		return nil, err
	}
	return doc.Account(id)
}

func (s *Storage) UpsertAccount(ctx context.Context, id model.AccountID, update model.AccountUpdate) (*model.AccountState, error) {
	var account *model.AccountState
	err := s.mutate(ctx, func(doc *storage.Document) error {
		var err error
		account, err = doc.ApplyAccount(id, update, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.AccountState, error) {
	doc, err := load(s.path)
	if err != nil {
		return nil, err
	}
	return doc.AccountList(), nil
}

// Global state operations

func (s *Storage) GetGlobalState(ctx context.Context) (*model.GlobalState, error) {
	doc, err := load(s.path)
	if err != nil {
		return nil, err
	}
	return doc.GlobalState.Clone(), nil
}

func (s *Storage) UpsertGlobalState(ctx context.Context, update model.GlobalUpdate) (*model.GlobalState, error) {
	var global *model.GlobalState
	err := s.mutate(ctx, func(doc *storage.Document) error {
		global = doc.ApplyGlobal(update, s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return global, nil
}

// mutate runs apply against the current file contents while holding the file lock.
// Nothing is written when apply fails.
func (s *Storage) mutate(ctx context.Context, apply func(doc *storage.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock state %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("lock state %s: not acquired", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	doc, err := load(s.path)
	if err != nil {
		return err
	}
	if err := apply(doc); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func load(path string) (*storage.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.NewDocument(), nil
		}
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}
	doc, err := storage.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	return doc, nil
}

// writeAtomic writes to a sibling temp file, syncs it, then renames over path
func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
