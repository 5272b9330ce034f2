package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
)

// ErrTxConflict is returned when a write keeps losing the optimistic lock
var ErrTxConflict = errors.New("redis transaction conflict")

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	clock  clock.Clock
}

// New creates a new Redis storage instance
func New(cfg Config, clk clock.Clock) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, clk), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, clk clock.Clock) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = 1
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		clock:  clk,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.AccountState, error) {
	return getAccount(ctx, s.client, id)
}

func (s *Storage) UpsertAccount(ctx context.Context, id model.AccountID, update model.AccountUpdate) (*model.AccountState, error) {
	key := accountKey(id)
	var result *model.AccountState

	txf := func(tx *redis.Tx) error {
		doc := storage.NewDocument()
		current, err := getAccount(ctx, tx, id)
		switch {
		case err == nil:
			doc.Accounts[id] = current
		case !errors.Is(err, model.ErrAccountNotFound):
			return err
		}

		next, err := doc.ApplyAccount(id, update, s.clock.Now())
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, accountsIndexKey(), string(id))
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*model.AccountState, error) {
	ids, err := s.client.SMembers(ctx, accountsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	accounts := make([]*model.AccountState, 0, len(ids))
	for _, id := range ids {
		account, err := s.GetAccount(ctx, model.AccountID(id))
		if err != nil {
			if errors.Is(err, model.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Global state operations

func (s *Storage) GetGlobalState(ctx context.Context) (*model.GlobalState, error) {
	return getGlobal(ctx, s.client)
}

func (s *Storage) UpsertGlobalState(ctx context.Context, update model.GlobalUpdate) (*model.GlobalState, error) {
	var result *model.GlobalState

	txf := func(tx *redis.Tx) error {
		current, err := getGlobal(ctx, tx)
		if err != nil {
			return err
		}
		doc := storage.NewDocument()
		doc.GlobalState = *current

		next := doc.ApplyGlobal(update, s.clock.Now())
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, globalKey(), data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	if err := s.watch(ctx, txf, globalKey()); err != nil {
		return nil, err
	}
	return result, nil
}

// watch runs txf under WATCH, retrying when another writer touched the keys
func (s *Storage) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %v", ErrTxConflict, keys)
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getAccount(ctx context.Context, c getter, id model.AccountID) (*model.AccountState, error) {
	data, err := c.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.AccountState
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func getGlobal(ctx context.Context, c getter) (*model.GlobalState, error) {
	data, err := c.Get(ctx, globalKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.NewDocument().GlobalState.Clone(), nil
		}
		return nil, err
	}

	var global model.GlobalState
	if err := json.Unmarshal(data, &global); err != nil {
		return nil, err
	}
	return global.Clone(), nil
}
