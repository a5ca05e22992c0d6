package domain

import (
	"errors"
)

// Sentinel errors for the failure kinds the engine reports. Callers classify
// with errors.Is; wrapped messages carry the specifics.
var (
	// ErrNotFound indicates an unknown code or version reference.
	ErrNotFound = errors.New("qr code not found")

	// ErrNotActive indicates a scan attempted outside the active state.
	ErrNotActive = errors.New("qr code is not active")

	// ErrExpired indicates a lazily-detected expiration. The expired state is
	// persisted before this error is reported.
	ErrExpired = errors.New("qr code has expired")

	// ErrInvalidTransition indicates an illegal activation attempt.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrValidation indicates malformed rule or version parameters, detected
	// at management-operation boundaries.
	ErrValidation = errors.New("validation failed")
)
