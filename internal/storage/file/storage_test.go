package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/mocks"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	s := &storagetest.Suite{}
	s.NewStorage = func(clk clock.Clock) storage.Storage {
		st, err := New(Config{Path: filepath.Join(s.T().TempDir(), "state.json")}, clk)
		s.Require().NoError(err)
		return st
	}
	suite.Run(t, s)
}

func newStorage(t *testing.T, path string) *Storage {
	t.Helper()
	st, err := New(Config{Path: path}, mocks.NewMockClock(storagetest.Epoch))
	require.NoError(t, err)
	return st
}

func TestMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st := newStorage(t, path)

	accounts, err := st.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written until the first mutation")
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	st := newStorage(t, path)

	window := model.NewTimedWindow(storagetest.Epoch, 48*time.Hour)
	phase := model.PhaseTimedWindow
	_, err := st.UpsertAccount(ctx, "acc-1", model.AccountUpdate{CurrentPhase: &phase, ClickFreeze: &window})
	require.NoError(t, err)

	active := []model.AccountID{"acc-1"}
	_, err = st.UpsertGlobalState(ctx, model.GlobalUpdate{ActiveClickFreeze: &active})
	require.NoError(t, err)

	reopened := newStorage(t, path)
	account, err := reopened.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, account.ClickFreeze)
	assert.True(t, account.ClickFreeze.EndsAt.Equal(window.EndsAt))

	global, err := reopened.GetGlobalState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.AccountID{"acc-1"}, global.ActiveClickFreeze)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCorruptFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(Config{Path: path}, mocks.NewMockClock(storagetest.Epoch))
	assert.Error(t, err)
}

func TestDocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := newStorage(t, path)

	_, err := st.UpsertAccount(context.Background(), "acc-1", model.AccountUpdate{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"accounts"`)
	assert.Contains(t, string(data), `"globalState"`)
	assert.Contains(t, string(data), `"clickFreezeQueue"`)
	assert.Contains(t, string(data), `"currentPhase": 1`)
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	st := newStorage(t, path)

	_, err := st.UpsertAccount(ctx, "acc-0", model.AccountUpdate{})
	require.NoError(t, err)

	// A non-empty directory at the temp path makes the write fail
	require.NoError(t, os.MkdirAll(filepath.Join(path+".tmp", "blocker"), 0o755))

	_, err = st.UpsertAccount(ctx, "acc-1", model.AccountUpdate{})
	require.Error(t, err)

	_, err = st.GetAccount(ctx, "acc-1")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
	_, err = st.GetAccount(ctx, "acc-0")
	assert.NoError(t, err)
}

func TestStoresSharingAFileSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	first := newStorage(t, path)
	second := newStorage(t, path)

	phase := model.PhaseLevelToGate
	_, err := first.UpsertAccount(ctx, "acc-a", model.AccountUpdate{})
	require.NoError(t, err)
	_, err = first.UpsertAccount(ctx, "acc-a", model.AccountUpdate{CurrentPhase: &phase})
	require.NoError(t, err)
	active := []model.AccountID{"acc-a"}
	_, err = first.UpsertGlobalState(ctx, model.GlobalUpdate{ActiveClickFreeze: &active})
	require.NoError(t, err)

	global, err := second.GetGlobalState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.AccountID{"acc-a"}, global.ActiveClickFreeze)

	_, err = second.UpsertAccount(ctx, "acc-b", model.AccountUpdate{})
	require.NoError(t, err)
	queue := []model.AccountID{"acc-b"}
	_, err = second.UpsertGlobalState(ctx, model.GlobalUpdate{ClickFreezeQueue: &queue})
	require.NoError(t, err)

	a, err := first.GetAccount(ctx, "acc-a")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseLevelToGate, a.CurrentPhase)

	accounts, err := first.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	global, err = first.GetGlobalState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.AccountID{"acc-a"}, global.ActiveClickFreeze)
	assert.Equal(t, []model.AccountID{"acc-b"}, global.ClickFreezeQueue)

	// A stale view in the second store cannot undo the first store's phase commit
	regress := model.PhaseTimedWindow
	_, err = second.UpsertAccount(ctx, "acc-a", model.AccountUpdate{CurrentPhase: &regress})
	assert.ErrorIs(t, err, model.ErrPhaseRegression)
}

func TestConcurrentWritersKeepEveryAccount(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	stores := []*Storage{newStorage(t, path), newStorage(t, path)}

	var wg sync.WaitGroup
	for i, st := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range 10 {
				id := model.AccountID(fmt.Sprintf("acc-%d-%d", i, n))
				_, err := st.UpsertAccount(ctx, id, model.AccountUpdate{})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	accounts, err := stores[0].ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 20)
}
