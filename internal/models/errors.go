package models

import "errors"

// Engine errors, grouped by failure class. Entry points wrap these with
// fmt.Errorf("%w: ...") so callers always get a specific rejection reason
// while handlers can still map the class to an HTTP status with errors.Is.
var (
	// validation
	ErrInvalidInput    = errors.New("invalid input")
	ErrStakeTooLow     = errors.New("stake below minimum")
	ErrTokenNotAllowed = errors.New("token not allow-listed")
	ErrBadDeadlines    = errors.New("deadlines must be strictly increasing from now")

	// state
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrWrongStatus   = errors.New("record not in required status")
	ErrPaused        = errors.New("engine is paused")

	// authorization
	ErrUnauthorized = errors.New("caller not permitted")
	ErrBadSignature = errors.New("invalid result signature")

	// deadlines
	ErrDeadlinePassed     = errors.New("deadline passed")
	ErrDeadlineNotReached = errors.New("deadline not reached")

	// double actions
	ErrAlreadyDeposited = errors.New("already deposited")
	ErrAlreadyPlaced    = errors.New("already placed a stake")
	ErrAlreadyClaimed   = errors.New("already claimed")
	ErrNothingToClaim   = errors.New("nothing to claim")

	// ledger
	ErrInsufficientFunds = errors.New("insufficient funds")
)
