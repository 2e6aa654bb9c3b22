// Package services implements the business logic that owns the TableSession
// aggregate. This file centralizes service-level error values so that they
// can be consistently returned by store actions and checked by callers.
//
// Validation and precondition errors are local synchronous failures: they
// are surfaced to the user (via translation keys, see TranslationKey) and
// never retried. Storage failures are logged inside the store and do not
// surface here; the in-memory aggregate stays authoritative for the process.
package services

import (
	"errors"

	"github.com/tavolo/go-table-backend/internal/i18n"
)

var (
	// ErrInvalidTableNumber indicates the table identifier failed format
	// validation.
	ErrInvalidTableNumber = errors.New("invalid table number")

	// ErrInvalidDinerName indicates a missing or oversized diner name.
	ErrInvalidDinerName = errors.New("invalid diner name")

	// ErrInvalidItem indicates a cart item failed validation (non-positive
	// or non-finite price, quantity outside [1,99]).
	ErrInvalidItem = errors.New("invalid cart item")

	// ErrInvalidTransition indicates a requested order-status change is not
	// a legal step in the lifecycle, or targets a terminal state owned by
	// the close flow.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrNoSession indicates no live (non-expired) session exists for the
	// table.
	ErrNoSession = errors.New("no session for table")

	// ErrNotJoined indicates the calling device holds no diner identity at
	// the table.
	ErrNotJoined = errors.New("device has not joined the table")

	// ErrSessionClosed indicates the session is closed: no cart mutation or
	// round submission is permitted.
	ErrSessionClosed = errors.New("session is closed")

	// ErrEmptyCart is returned by SubmitOrder when the shared cart is empty.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrPendingCart is returned by CloseTable while unsubmitted items
	// remain in the shared cart.
	ErrPendingCart = errors.New("cart has unsubmitted items")

	// ErrNothingToClose is returned by CloseTable when no rounds were ever
	// submitted.
	ErrNothingToClose = errors.New("no orders to close")

	// ErrInvalidSplitMethod indicates an unrecognized split method.
	ErrInvalidSplitMethod = errors.New("invalid split method")
)

// TranslationKey maps a service error to the message-catalog key the
// presentation layer localizes. Unknown errors map to the empty string.
func TranslationKey(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTableNumber):
		return i18n.KeyInvalidTable
	case errors.Is(err, ErrInvalidDinerName):
		return i18n.KeyInvalidDiner
	case errors.Is(err, ErrInvalidItem):
		return i18n.KeyInvalidItem
	case errors.Is(err, ErrInvalidTransition):
		return i18n.KeyInvalidTransition
	case errors.Is(err, ErrEmptyCart):
		return i18n.KeyEmptyCart
	case errors.Is(err, ErrPendingCart):
		return i18n.KeyPendingCart
	case errors.Is(err, ErrNothingToClose):
		return i18n.KeyNothingToClose
	case errors.Is(err, ErrSessionClosed):
		return i18n.KeySessionClosed
	default:
		return ""
	}
}
