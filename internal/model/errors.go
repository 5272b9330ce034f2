package model

import "errors"

// Common errors used across the application
var (
	// Store errors
	ErrAccountNotFound = errors.New("account not found")
	ErrPhaseRegression = errors.New("phase cannot decrease")
	ErrInvalidPhase    = errors.New("invalid phase")
	ErrInvalidWindow   = errors.New("timed window ends before it starts")

	// Session errors
	ErrCredentialsNotFound   = errors.New("credentials not found")
	ErrAccountNotInitialized = errors.New("account not initialized")
	ErrInvalidSnapshot       = errors.New("remote profile has negative values")

	// Engine errors
	ErrFailureBudgetExhausted = errors.New("too many consecutive iteration failures")
)
