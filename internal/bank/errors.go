package bank

import "errors"

var (
	// ErrNonPositiveAmount is returned for zero or negative amounts.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when a debit exceeds balance plus
	// credit limit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMalformedRecord is returned when a snapshot line cannot be parsed.
	ErrMalformedRecord = errors.New("malformed snapshot record")
)
