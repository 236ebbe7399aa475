package engine

import "errors"

var (
	// ErrBadDomain rejects a construction config whose price domain is
	// empty or starts at zero.
	ErrBadDomain = errors.New("invalid price domain")

	// ErrPriceOutOfRange rejects a price outside [MinPrice, MaxPrice].
	ErrPriceOutOfRange = errors.New("price out of range")

	// ErrZeroQuantity rejects an order with no quantity.
	ErrZeroQuantity = errors.New("zero quantity")

	// ErrDuplicateID rejects a new order whose id is already live.
	ErrDuplicateID = errors.New("duplicate order id")

	// ErrUnknownID rejects a cancel or amend referencing an id that is
	// not live (never seen, already filled, or already cancelled).
	ErrUnknownID = errors.New("unknown order id")

	// ErrInsufficientQuantity rejects an amend that does not strictly
	// decrease the live quantity.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrUnfilledMarketOrder reports that a market order ran out of
	// opposing liquidity. Fills already made stand; the remainder is
	// discarded, never rested.
	ErrUnfilledMarketOrder = errors.New("market order not fully filled")
)
