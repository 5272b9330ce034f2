package factory

import (
	"time"

	"github.com/mcoot/caseclicker-orchestrator/internal/credentials"
	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/mocks"
	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage/memory"
	"github.com/mcoot/caseclicker-orchestrator/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockAPI   *mocks.MockGameAPI
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Every account in creds shares MockAPI; logs go only to the ring.
func NewTestApp(creds credentials.Static, cfg Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	mockAPI := &mocks.MockGameAPI{}
	store := memory.New(mockClock)
	logger, ring := testutil.RingLogger(logging.DefaultRingSize)
	cfg.Ring = ring

	newAPI := func(string) remote.GameAPI { return mockAPI }
	app := newWithDependencies(store, mockClock, creds, newAPI, cfg, logger, nil)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockAPI:   mockAPI,
	}
}
