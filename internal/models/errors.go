package models

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of them, so
// callers may match either the category or the specific error with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("provided user does not have permission for this operation")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrNoJob     = fmt.Errorf("%w: requested job does not exist", ErrNotFound)
	ErrNoBid     = fmt.Errorf("%w: requested bid does not exist", ErrNotFound)
	ErrNoUser    = fmt.Errorf("%w: requested user does not exist", ErrNotFound)
	ErrNoAsset   = fmt.Errorf("%w: requested asset does not exist", ErrNotFound)
	ErrNoMessage = fmt.Errorf("%w: requested message does not exist", ErrNotFound)

	ErrDuplicateBid    = fmt.Errorf("%w: bidder already has a bid on this job", ErrConflict)
	ErrAlreadyAssigned = fmt.Errorf("%w: job already has an accepted bid", ErrConflict)
	ErrAlreadyRated    = fmt.Errorf("%w: job is already rated by this side", ErrConflict)
	ErrStaleWrite      = fmt.Errorf("%w: document was modified concurrently", ErrConflict)
	ErrDuplicateEmail  = fmt.Errorf("%w: email is already registered", ErrConflict)

	ErrJobFinalized      = fmt.Errorf("%w: job is already completed or canceled", ErrValidation)
	ErrJobNotOpen        = fmt.Errorf("%w: job is not open for bids", ErrValidation)
	ErrJobNotCompleted   = fmt.Errorf("%w: job is not completed", ErrValidation)
	ErrBidFinalized      = fmt.Errorf("%w: bid is already accepted or rejected", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: status transition is not allowed", ErrValidation)
	ErrInvalidPage       = fmt.Errorf("%w: page and limit must be positive", ErrValidation)
	ErrInvalidRole       = fmt.Errorf("%w: unknown rater role", ErrValidation)
	ErrInvalidCurrency   = fmt.Errorf("%w: unknown currency", ErrValidation)
	ErrInvalidIdentity   = fmt.Errorf("%w: missing or malformed subject id", ErrValidation)
	ErrInvalidUserRole   = fmt.Errorf("%w: unknown user role", ErrValidation)
	ErrSelfMessage       = fmt.Errorf("%w: sender and receiver are the same user", ErrValidation)
	ErrEmptyUpdate       = fmt.Errorf("%w: profile update has no fields", ErrValidation)
)

// Unavailable marks a driver failure as a store outage, keeping the cause.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
