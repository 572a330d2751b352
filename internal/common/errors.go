// Package common defines shared constants and sentinel errors used across
// the ledger, the reconciler and the store adapters. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Ledger errors.
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Reconciliation errors.
	ErrUnknownProduct        = errors.New("unknown product")
	ErrReceiptInvalid        = errors.New("receipt invalid")
	ErrValidationUnreachable = errors.New("receipt validation unreachable")

	// Store adapter errors.
	ErrUserCancelled    = errors.New("purchase cancelled by user")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Lifecycle errors.
	ErrNotInitialized = errors.New("engine not initialized")
)

// UnknownProductError reports a product id missing from the catalog.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return "unknown product " + e.ProductID
}

func (e *UnknownProductError) Unwrap() error { return ErrUnknownProduct }
