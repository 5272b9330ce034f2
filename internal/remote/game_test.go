package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/mocks"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/testutil"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newGameServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*remote.API, *[]recorded) {
	t.Helper()
	var calls []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.body))
		}
		calls = append(calls, rec)
		respond(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := remote.DefaultConfig()
	cfg.BaseURL = server.URL
	client := remote.NewClient(remote.NewHTTPTransport(cfg), "tok", cfg.Retry, mocks.NewMockClock(epoch), testutil.NopLogger(), nil)
	return remote.NewAPI(client, cfg.ClickPath), &calls
}

func TestMeDecodesProfile(t *testing.T) {
	api, _ := newGameServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"level":31,"tokens":1500,"money":"245.75","rank":"Gold Nova 2"}`))
	})

	p, err := api.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 31, p.Level)
	assert.True(t, p.Tokens.Equal(decimal.NewFromInt(1500)))
	assert.True(t, p.Money.Equal(decimal.RequireFromString("245.75")))
	assert.Equal(t, "Gold Nova 2", p.Rank)
}

func TestOwnedCasesAndBuy(t *testing.T) {
	api, calls := newGameServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[{"_id":"case-a","amount":50}]`))
		}
	})

	owned, err := api.OwnedCases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []remote.OwnedCase{{ID: "case-a", Amount: 50}}, owned)

	require.NoError(t, api.BuyCases(context.Background(), "case-a", 50))
	require.Len(t, *calls, 2)
	buy := (*calls)[1]
	assert.Equal(t, http.MethodPost, buy.method)
	assert.Equal(t, "/cases", buy.path)
	assert.Equal(t, "case", buy.body["type"])
	assert.Equal(t, 50.0, buy.body["amount"])
}

func TestOpenCasesPayload(t *testing.T) {
	api, calls := newGameServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"skins":[{"price":1.5},{"price":"2.25"}],"autoSellInfo":{"count":2,"cost":3.75}}`))
	})

	result, err := api.OpenCases(context.Background(), "case-a", 100, remote.DefaultAutoOpenConfig())
	require.NoError(t, err)
	require.Len(t, result.Skins, 2)
	require.NotNil(t, result.AutoSellInfo)
	assert.Equal(t, 2, result.AutoSellInfo.Count)
	assert.True(t, result.AutoSellInfo.Cost.Equal(decimal.RequireFromString("3.75")))

	req := (*calls)[0]
	assert.Equal(t, "/open/case", req.path)
	assert.Equal(t, "100", req.body["count"])
	assert.Equal(t, true, req.body["quickOpen"])
	assert.Equal(t, false, req.body["useEventTickets"])
	assert.Equal(t, 1.0, req.body["caseOpenMultiplier"])

	auto := req.body["autoOpenConfig"].(map[string]any)
	assert.Equal(t, true, auto["autosellActivated"])
	assert.Equal(t, 100000.0, auto["autosellAmount"])
	assert.Equal(t, "money", auto["autosellVariant"])
	assert.Equal(t, []any{"0.123456", "0.42069"}, auto["customSelectedFloats"])
}

func TestSellInventoryVerbs(t *testing.T) {
	api, calls := newGameServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":0,"cost":0}`))
	})

	res, err := api.SellInventory(context.Background(), decimal.NewFromInt(500), remote.CurrencyMoney)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	_, err = api.SellInventory(context.Background(), decimal.NewFromInt(500), remote.CurrencyTokens)
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodDelete, (*calls)[0].method)
	assert.Equal(t, http.MethodPatch, (*calls)[1].method)
	for _, c := range *calls {
		assert.Equal(t, "/inventory", c.path)
		assert.Equal(t, "price", c.body["type"])
		assert.Equal(t, 500.0, c.body["value"])
		assert.Equal(t, "money", c.body["currency"])
	}
}

func TestClickUsesConfiguredPath(t *testing.T) {
	api, calls := newGameServer(t, func(w http.ResponseWriter, r *http.Request) {})

	require.NoError(t, api.Click(context.Background()))
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.Equal(t, "/click", (*calls)[0].path)
}

func TestUndiscoveredOperationsAreUnsupported(t *testing.T) {
	api, calls := newGameServer(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	for _, err := range []error{api.Missions(ctx), api.ClaimRewards(ctx), api.ProgressSkillmap(ctx)} {
		assert.True(t, errors.Is(err, remote.ErrUnsupported))
		var unsupported *remote.UnsupportedError
		assert.True(t, errors.As(err, &unsupported))
	}
	assert.Empty(t, *calls)
}

func TestParseCurrency(t *testing.T) {
	c, err := remote.ParseCurrency("tokens")
	require.NoError(t, err)
	assert.Equal(t, remote.CurrencyTokens, c)

	_, err = remote.ParseCurrency("gold")
	assert.Error(t, err)
}
