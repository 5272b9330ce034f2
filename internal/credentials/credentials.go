// Package credentials resolves the session token for an account.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

// Credential is the secret bound to one account
type Credential struct {
	AccountID   model.AccountID
	DisplayName string
	Token       string
}

// Store looks up credentials by account id
type Store interface {
	Lookup(ctx context.Context, id model.AccountID) (*Credential, error)
	List(ctx context.Context) ([]model.AccountID, error)
}

type accountEntry struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	SessionToken string `json:"sessionToken"`
}

type accountsFile struct {
	Accounts []accountEntry `json:"accounts"`
}

// FileStore reads an accounts.json file on every lookup so edits take effect without a restart
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

func (s *FileStore) Lookup(ctx context.Context, id model.AccountID) (*Credential, error) {
	creds, err := s.load()
	if err != nil {
		return nil, err
	}
	return Static(creds).Lookup(ctx, id)
}

func (s *FileStore) List(ctx context.Context) ([]model.AccountID, error) {
	creds, err := s.load()
	if err != nil {
		return nil, err
	}
	return Static(creds).List(ctx)
}

func (s *FileStore) load() (map[model.AccountID]Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file %s: %w", s.path, err)
	}
	var file accountsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode accounts file %s: %w", s.path, err)
	}

	creds := make(map[model.AccountID]Credential, len(file.Accounts))
	for _, a := range file.Accounts {
		id := model.AccountID(a.ID)
		creds[id] = Credential{AccountID: id, DisplayName: a.Username, Token: a.SessionToken}
	}
	return creds, nil
}

// Static is an in-memory Store
type Static map[model.AccountID]Credential

// Ensure Static implements Store
var _ Store = Static(nil)

func (s Static) Lookup(ctx context.Context, id model.AccountID) (*Credential, error) {
	c, ok := s[id]
	if !ok || c.Token == "" {
		return nil, fmt.Errorf("%w: %s", model.ErrCredentialsNotFound, id)
	}
	c.AccountID = id
	return &c, nil
}

func (s Static) List(ctx context.Context) ([]model.AccountID, error) {
	ids := make([]model.AccountID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
