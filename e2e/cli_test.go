package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/caseclicker-orchestrator/internal/cli"
	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
	filestorage "github.com/mcoot/caseclicker-orchestrator/internal/storage/file"
)

const caseID = "63529100e4821cab2f1c5ed2"

// gameServer fakes the game API. The profile reports the target rank once cases have been opened.
type gameServer struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	opened     int
	sellBodies []map[string]any
	tokens     []string
}

func startGameServer(t *testing.T) *gameServer {
	t.Helper()
	g := &gameServer{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		g.record(r)
		g.mu.Lock()
		rank := model.RankMasterGuardian2
		if g.opened > 0 {
			rank = model.RankGlobalElite
		}
		g.mu.Unlock()
		writeJSON(w, map[string]any{"level": 40, "rank": string(rank), "money": 1234.5, "tokens": 80})
	})
	mux.HandleFunc("GET /cases", func(w http.ResponseWriter, r *http.Request) {
		g.record(r)
		writeJSON(w, []map[string]any{{"_id": caseID, "amount": 250}})
	})
	mux.HandleFunc("POST /open/case", func(w http.ResponseWriter, r *http.Request) {
		g.record(r)
		g.mu.Lock()
		g.opened++
		g.mu.Unlock()
		writeJSON(w, map[string]any{"skins": []any{}})
	})
	mux.HandleFunc("DELETE /inventory", func(w http.ResponseWriter, r *http.Request) {
		g.record(r)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		g.mu.Lock()
		g.sellBodies = append(g.sellBodies, body)
		g.mu.Unlock()
		writeJSON(w, map[string]any{"count": 5, "cost": 12.5})
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *gameServer) record(r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append(g.tokens, r.Header.Get("Authorization"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// env holds the files one CLI invocation works against
type env struct {
	stateFile    string
	accountsFile string
	apiURL       string
}

func newEnv(t *testing.T, apiURL string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		stateFile:    filepath.Join(dir, "automation-state.json"),
		accountsFile: filepath.Join(dir, "accounts.json"),
		apiURL:       apiURL,
	}
	accounts := `{"accounts": [{"id": "alice", "username": "Alice", "sessionToken": "secret-a"}]}`
	require.NoError(t, os.WriteFile(e.accountsFile, []byte(accounts), 0o600))
	return e
}

func (e *env) seed(t *testing.T, id model.AccountID, update model.AccountUpdate) {
	t.Helper()
	store, err := filestorage.New(filestorage.Config{Path: e.stateFile}, clock.New())
	require.NoError(t, err)
	_, err = store.UpsertAccount(context.Background(), id, update)
	require.NoError(t, err)
}

func (e *env) run(args ...string) (string, error) {
	full := append([]string{
		"--storage", "file",
		"--state-file", e.stateFile,
		"--accounts-file", e.accountsFile,
		"--api-url", e.apiURL,
		"--log-level", "error",
	}, args...)

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunResumesAndCompletes(t *testing.T) {
	game := startGameServer(t)
	e := newEnv(t, game.server.URL)
	phase := model.PhaseLevelToTarget
	rank := model.RankMasterGuardian2
	e.seed(t, "alice", model.AccountUpdate{CurrentPhase: &phase, Rank: &rank})

	_, err := e.run("run", "alice")
	require.NoError(t, err)

	out, err := e.run("status", "alice", "-o", "json")
	require.NoError(t, err)

	var st engine.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, model.StateComplete, st.State)
	assert.Equal(t, model.RankGlobalElite, st.Rank)
	assert.Equal(t, "Alice", st.DisplayName)
	assert.Equal(t, 40, st.Level)
	assert.True(t, st.Balances.Money.Equal(decimal.RequireFromString("1234.5")))

	game.mu.Lock()
	defer game.mu.Unlock()
	assert.Equal(t, 1, game.opened)
	for _, token := range game.tokens {
		assert.Equal(t, "Bearer secret-a", token)
	}

	// A completed account does no further work
	_, err = e.run("run", "alice")
	require.NoError(t, err)
}

func TestRunWithoutCredentialsFails(t *testing.T) {
	game := startGameServer(t)
	e := newEnv(t, game.server.URL)

	_, err := e.run("run", "mallory")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCredentialsNotFound)
}

func TestRunRejectsCorruptState(t *testing.T) {
	game := startGameServer(t)
	e := newEnv(t, game.server.URL)
	require.NoError(t, os.WriteFile(e.stateFile, []byte("{not json"), 0o600))

	_, err := e.run("run", "alice")
	require.Error(t, err)
}

func TestStatusUnknownAccount(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1")

	_, err := e.run("status", "nobody")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestSell(t *testing.T) {
	game := startGameServer(t)
	e := newEnv(t, game.server.URL)

	out, err := e.run("sell", "alice", "--threshold", "100", "--currency", "money", "-o", "json")
	require.NoError(t, err)

	var result remote.SellResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 5, result.Count)
	assert.True(t, result.Cost.Equal(decimal.RequireFromString("12.5")))

	game.mu.Lock()
	defer game.mu.Unlock()
	require.Len(t, game.sellBodies, 1)
	assert.Equal(t, "price", game.sellBodies[0]["type"])
	assert.EqualValues(t, 100, game.sellBodies[0]["value"])
	assert.Equal(t, "money", game.sellBodies[0]["currency"])
}

func TestSellRequiresThreshold(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1")

	_, err := e.run("sell", "alice")
	assert.Error(t, err)

	_, err = e.run("sell", "alice", "--threshold", "10", "--currency", "gems")
	assert.Error(t, err)
}

func TestAccounts(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1")
	name := "Bob"
	e.seed(t, "bob", model.AccountUpdate{DisplayName: &name})
	e.seed(t, "alice", model.AccountUpdate{})

	out, err := e.run("accounts", "-o", "json")
	require.NoError(t, err)

	var accounts []model.AccountState
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	require.Len(t, accounts, 2)
	assert.Equal(t, model.AccountID("alice"), accounts[0].ID)
	assert.Equal(t, model.AccountID("bob"), accounts[1].ID)
	assert.Equal(t, model.PhaseTimedWindow, accounts[1].CurrentPhase)
}

func TestHashToken(t *testing.T) {
	e := newEnv(t, "http://127.0.0.1:1")

	out, err := e.run("hash-token", "let-me-in", "-o", "json")
	require.NoError(t, err)

	var msg struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &msg))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(msg.Message), []byte("let-me-in")))
}
