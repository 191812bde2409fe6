package errors

import "errors"

var (
	ErrNotFound = errors.New("rider not found")

	ErrInvalidID = errors.New("invalid rider ID format")

	// ErrInsufficientFunds is returned when a conditional wallet debit matches nothing.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	ErrInsufficientPoints = errors.New("insufficient loyalty points")
)
