package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// Currency selects what a bulk sale pays out in
type Currency string

const (
	CurrencyMoney  Currency = "money"
	CurrencyTokens Currency = "tokens"
)

// ParseCurrency validates a currency name
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyMoney, CurrencyTokens:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("unknown currency %q", s)
	}
}

// Profile is the authoritative account snapshot returned by GET /me
type Profile struct {
	Level         int             `json:"level"`
	Tokens        decimal.Decimal `json:"tokens"`
	Money         decimal.Decimal `json:"money"`
	Rank          string          `json:"rank"`
	CaseOpenCount int             `json:"caseOpenCount"`
}

// OwnedCase is one entry of GET /cases
type OwnedCase struct {
	ID     string `json:"_id"`
	Amount int    `json:"amount"`
}

// Skin is one opened item
type Skin struct {
	Name  string          `json:"name,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// SellResult reports how many items a sale moved and what they paid
type SellResult struct {
	Count int             `json:"count"`
	Cost  decimal.Decimal `json:"cost"`
}

// OpenResult is the response of POST /open/case
type OpenResult struct {
	Skins        []Skin      `json:"skins"`
	AutoSellInfo *SellResult `json:"autoSellInfo,omitempty"`
}

// AutoOpenConfig is sent with every open so the server sells and favorites items as they drop
type AutoOpenConfig struct {
	AutosellActivated    bool
	AutosellAmount       decimal.Decimal
	FavoriteLowFloats    bool
	FavoritePatterns     bool
	CustomLowFloat       float64
	CustomHighFloat      float64
	CustomSelectedFloats []string
	FavoriteCustomFloats bool
}

// DefaultAutoOpenConfig sells everything under 100000 and favorites rare floats
func DefaultAutoOpenConfig() AutoOpenConfig {
	return AutoOpenConfig{
		AutosellActivated:    true,
		AutosellAmount:       decimal.NewFromInt(100000),
		FavoriteLowFloats:    true,
		FavoritePatterns:     true,
		CustomLowFloat:       0.0000001,
		CustomHighFloat:      0.99999,
		CustomSelectedFloats: []string{"0.123456", "0.42069"},
		FavoriteCustomFloats: true,
	}
}

// GameAPI is the set of remote capabilities the work units use
type GameAPI interface {
	Me(ctx context.Context) (*Profile, error)
	OwnedCases(ctx context.Context) ([]OwnedCase, error)
	BuyCases(ctx context.Context, caseID string, amount int) error
	OpenCases(ctx context.Context, caseID string, count int, cfg AutoOpenConfig) (*OpenResult, error)
	SellInventory(ctx context.Context, threshold decimal.Decimal, currency Currency) (*SellResult, error)
	Click(ctx context.Context) error

	// No endpoint is known for these; implementations return *UnsupportedError
	Missions(ctx context.Context) error
	ClaimRewards(ctx context.Context) error
	ProgressSkillmap(ctx context.Context) error
}

var (
	methodMe         = Method{Verb: http.MethodGet, Path: "/me"}
	methodOwnedCases = Method{Verb: http.MethodGet, Path: "/cases"}
	methodBuyCases   = Method{Verb: http.MethodPost, Path: "/cases"}
	methodOpenCase   = Method{Verb: http.MethodPost, Path: "/open/case"}
	methodSellMoney  = Method{Verb: http.MethodDelete, Path: "/inventory"}
	methodSellTokens = Method{Verb: http.MethodPatch, Path: "/inventory"}
)

// API implements GameAPI on top of a Client
type API struct {
	client    *Client
	clickPath string
}

// NewAPI wraps client; clickPath overrides the click endpoint when non-empty
func NewAPI(client *Client, clickPath string) *API {
	if clickPath == "" {
		clickPath = DefaultConfig().ClickPath
	}
	return &API{client: client, clickPath: clickPath}
}

// Ensure API implements GameAPI
var _ GameAPI = (*API)(nil)

func (a *API) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := a.client.Call(ctx, methodMe, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *API) OwnedCases(ctx context.Context) ([]OwnedCase, error) {
	var cases []OwnedCase
	if err := a.client.Call(ctx, methodOwnedCases, nil, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

type buyRequest struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

func (a *API) BuyCases(ctx context.Context, caseID string, amount int) error {
	return a.client.Call(ctx, methodBuyCases, buyRequest{ID: caseID, Type: "case", Amount: amount}, nil)
}

type autoOpenPayload struct {
	AutosellActivated    bool        `json:"autosellActivated"`
	AutosellAmount       json.Number `json:"autosellAmount"`
	AutosellVariant      string      `json:"autosellVariant"`
	FavoriteLowFloats    bool        `json:"favoriteLowFloats"`
	FavoritePatterns     bool        `json:"favoritePatterns"`
	CustomLowFloat       float64     `json:"customLowFloat"`
	CustomHighFloat      float64     `json:"customHighFloat"`
	CustomSelectedFloats []string    `json:"customSelectedFloats"`
	FavoriteCustomFloats bool        `json:"favoriteCustomFloats"`
}

type openRequest struct {
	ID                 string          `json:"id"`
	QuickOpen          bool            `json:"quickOpen"`
	Count              string          `json:"count"`
	UseEventTickets    bool            `json:"useEventTickets"`
	CaseOpenMultiplier int             `json:"caseOpenMultiplier"`
	AutoOpenConfig     autoOpenPayload `json:"autoOpenConfig"`
}

func (a *API) OpenCases(ctx context.Context, caseID string, count int, cfg AutoOpenConfig) (*OpenResult, error) {
	selected := cfg.CustomSelectedFloats
	if selected == nil {
		selected = []string{}
	}
	req := openRequest{
		ID:                 caseID,
		QuickOpen:          true,
		Count:              strconv.Itoa(count),
		UseEventTickets:    false,
		CaseOpenMultiplier: 1,
		AutoOpenConfig: autoOpenPayload{
			AutosellActivated:    cfg.AutosellActivated,
			AutosellAmount:       json.Number(cfg.AutosellAmount.String()),
			AutosellVariant:      string(CurrencyMoney),
			FavoriteLowFloats:    cfg.FavoriteLowFloats,
			FavoritePatterns:     cfg.FavoritePatterns,
			CustomLowFloat:       cfg.CustomLowFloat,
			CustomHighFloat:      cfg.CustomHighFloat,
			CustomSelectedFloats: selected,
			FavoriteCustomFloats: cfg.FavoriteCustomFloats,
		},
	}

	var result OpenResult
	if err := a.client.Call(ctx, methodOpenCase, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type sellRequest struct {
	Type     string      `json:"type"`
	Value    json.Number `json:"value"`
	Currency string      `json:"currency"`
}

// SellInventory bulk-sells every item priced under threshold.
// The verb picks the payout; the body currency is always the price currency.
func (a *API) SellInventory(ctx context.Context, threshold decimal.Decimal, currency Currency) (*SellResult, error) {
	method := methodSellMoney
	if currency == CurrencyTokens {
		method = methodSellTokens
	}
	req := sellRequest{Type: "price", Value: json.Number(threshold.String()), Currency: string(CurrencyMoney)}

	var result SellResult
	if err := a.client.Call(ctx, method, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *API) Click(ctx context.Context) error {
	return a.client.Call(ctx, Method{Verb: http.MethodPost, Path: a.clickPath}, nil, nil)
}

func (a *API) Missions(ctx context.Context) error {
	return &UnsupportedError{Operation: "missions"}
}

func (a *API) ClaimRewards(ctx context.Context) error {
	return &UnsupportedError{Operation: "rewards"}
}

func (a *API) ProgressSkillmap(ctx context.Context) error {
	return &UnsupportedError{Operation: "skillmap"}
}
