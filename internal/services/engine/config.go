package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/workunit"
)

// Config holds the engine's timing and batch settings
type Config struct {
	// ClickFreezeDuration is the length of the phase 1 window
	ClickFreezeDuration time.Duration
	// ClickFreezeMaxConcurrent caps how many accounts may be inside their window at once
	ClickFreezeMaxConcurrent int

	// LoopDelay separates phase 2/3 iterations
	LoopDelay time.Duration
	// ErrorCooldown follows a failed iteration
	ErrorCooldown time.Duration
	// QueuePollDelay is the wait between admission attempts while queued
	QueuePollDelay time.Duration
	// MaxConsecutiveFailures stops Run after that many failed iterations in a row; 0 means never
	MaxConsecutiveFailures int

	Cycle workunit.CycleConfig

	// SellThreshold enables a bulk sell after each cycle when positive
	SellThreshold decimal.Decimal
	SellCurrency  remote.Currency

	// AutoStart sets the initial run flag
	AutoStart bool
}

// DefaultConfig returns the live settings
func DefaultConfig() Config {
	return Config{
		ClickFreezeDuration:      48 * time.Hour,
		ClickFreezeMaxConcurrent: 3,
		LoopDelay:                5 * time.Second,
		ErrorCooldown:            60 * time.Second,
		QueuePollDelay:           60 * time.Second,
		MaxConsecutiveFailures:   30,
		Cycle: workunit.CycleConfig{
			CaseID:    "63529100e4821cab2f1c5ed2",
			BatchSize: 100,
			AutoOpen:  remote.DefaultAutoOpenConfig(),
		},
		SellThreshold: decimal.Zero,
		SellCurrency:  remote.CurrencyMoney,
		AutoStart:     true,
	}
}
