package mocks

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
)

// BuyCall records one BuyCases invocation
type BuyCall struct {
	CaseID string
	Amount int
}

// OpenCall records one OpenCases invocation
type OpenCall struct {
	CaseID string
	Count  int
	Config remote.AutoOpenConfig
}

// SellCall records one SellInventory invocation
type SellCall struct {
	Threshold decimal.Decimal
	Currency  remote.Currency
}

// MockGameAPI is a programmable GameAPI. Unset funcs succeed with zero values,
// except the undiscovered operations which report unsupported.
type MockGameAPI struct {
	MeFunc               func(ctx context.Context) (*remote.Profile, error)
	OwnedCasesFunc       func(ctx context.Context) ([]remote.OwnedCase, error)
	BuyCasesFunc         func(ctx context.Context, caseID string, amount int) error
	OpenCasesFunc        func(ctx context.Context, caseID string, count int, cfg remote.AutoOpenConfig) (*remote.OpenResult, error)
	SellInventoryFunc    func(ctx context.Context, threshold decimal.Decimal, currency remote.Currency) (*remote.SellResult, error)
	ClickFunc            func(ctx context.Context) error
	MissionsFunc         func(ctx context.Context) error
	ClaimRewardsFunc     func(ctx context.Context) error
	ProgressSkillmapFunc func(ctx context.Context) error

	mu         sync.Mutex
	meCalls    int
	clicks     int
	ownedCalls int
	buys       []BuyCall
	opens      []OpenCall
	sells      []SellCall
	auxCalls   []string
}

// Ensure MockGameAPI implements GameAPI
var _ remote.GameAPI = (*MockGameAPI)(nil)

func (m *MockGameAPI) Me(ctx context.Context) (*remote.Profile, error) {
	m.mu.Lock()
	m.meCalls++
	m.mu.Unlock()
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return &remote.Profile{Rank: "Unranked"}, nil
}

func (m *MockGameAPI) OwnedCases(ctx context.Context) ([]remote.OwnedCase, error) {
	m.mu.Lock()
	m.ownedCalls++
	m.mu.Unlock()
	if m.OwnedCasesFunc != nil {
		return m.OwnedCasesFunc(ctx)
	}
	return nil, nil
}

func (m *MockGameAPI) BuyCases(ctx context.Context, caseID string, amount int) error {
	m.mu.Lock()
	m.buys = append(m.buys, BuyCall{CaseID: caseID, Amount: amount})
	m.mu.Unlock()
	if m.BuyCasesFunc != nil {
		return m.BuyCasesFunc(ctx, caseID, amount)
	}
	return nil
}

func (m *MockGameAPI) OpenCases(ctx context.Context, caseID string, count int, cfg remote.AutoOpenConfig) (*remote.OpenResult, error) {
	m.mu.Lock()
	m.opens = append(m.opens, OpenCall{CaseID: caseID, Count: count, Config: cfg})
	m.mu.Unlock()
	if m.OpenCasesFunc != nil {
		return m.OpenCasesFunc(ctx, caseID, count, cfg)
	}
	return &remote.OpenResult{}, nil
}

func (m *MockGameAPI) SellInventory(ctx context.Context, threshold decimal.Decimal, currency remote.Currency) (*remote.SellResult, error) {
	m.mu.Lock()
	m.sells = append(m.sells, SellCall{Threshold: threshold, Currency: currency})
	m.mu.Unlock()
	if m.SellInventoryFunc != nil {
		return m.SellInventoryFunc(ctx, threshold, currency)
	}
	return &remote.SellResult{}, nil
}

func (m *MockGameAPI) Click(ctx context.Context) error {
	m.mu.Lock()
	m.clicks++
	m.mu.Unlock()
	if m.ClickFunc != nil {
		return m.ClickFunc(ctx)
	}
	return nil
}

func (m *MockGameAPI) Missions(ctx context.Context) error {
	m.recordAux("missions")
	if m.MissionsFunc != nil {
		return m.MissionsFunc(ctx)
	}
	return &remote.UnsupportedError{Operation: "missions"}
}

func (m *MockGameAPI) ClaimRewards(ctx context.Context) error {
	m.recordAux("rewards")
	if m.ClaimRewardsFunc != nil {
		return m.ClaimRewardsFunc(ctx)
	}
	return &remote.UnsupportedError{Operation: "rewards"}
}

func (m *MockGameAPI) ProgressSkillmap(ctx context.Context) error {
	m.recordAux("skillmap")
	if m.ProgressSkillmapFunc != nil {
		return m.ProgressSkillmapFunc(ctx)
	}
	return &remote.UnsupportedError{Operation: "skillmap"}
}

func (m *MockGameAPI) recordAux(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auxCalls = append(m.auxCalls, op)
}

// MeCalls returns the number of Me calls
func (m *MockGameAPI) MeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meCalls
}

// Clicks returns the number of Click calls
func (m *MockGameAPI) Clicks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks
}

// OwnedCalls returns the number of OwnedCases calls
func (m *MockGameAPI) OwnedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownedCalls
}

// Buys returns recorded BuyCases calls
func (m *MockGameAPI) Buys() []BuyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BuyCall(nil), m.buys...)
}

// Opens returns recorded OpenCases calls
func (m *MockGameAPI) Opens() []OpenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OpenCall(nil), m.opens...)
}

// Sells returns recorded SellInventory calls
func (m *MockGameAPI) Sells() []SellCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SellCall(nil), m.sells...)
}

// AuxCalls returns the auxiliary operations invoked, in order
func (m *MockGameAPI) AuxCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.auxCalls...)
}

// TotalCalls returns the number of calls made to any operation
func (m *MockGameAPI) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meCalls + m.clicks + m.ownedCalls + len(m.buys) + len(m.opens) + len(m.sells) + len(m.auxCalls)
}
