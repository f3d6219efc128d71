package ticketing

import "errors"

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidQuantity       = errors.New("quantity must be a positive integer")
	ErrInsufficientInventory = errors.New("not enough tickets available")

	// ErrPaymentGateway wraps upstream checkout-session failures; it is
	// always raised before any ledger or inventory mutation.
	ErrPaymentGateway = errors.New("payment gateway error")

	// ErrInconsistentState marks a half-applied order/inventory pair on a
	// store that could not make the two writes atomic. The engine logs the
	// order id, ticket id and quantity so the pair can be reconciled.
	ErrInconsistentState = errors.New("order ledger and ticket inventory diverged")

	ErrInvalidTransition = errors.New("invalid payment status transition")
)
