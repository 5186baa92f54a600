package domain

import "errors"

// Sentinel errors for rejected input and missing data. Statistical edge
// cases (too few observations, zero denominators) are never surfaced as
// errors; they resolve to documented fallback values at the point of
// computation.
var (
	// ErrInvalidTarget is returned when a goal target amount or alert
	// target value is not positive.
	ErrInvalidTarget = errors.New("target value must be positive")

	// ErrInvalidQuantity is returned when a position quantity is not
	// positive or a sell exceeds the held quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrDataUnavailable is returned when no price history exists for a
	// symbol. Affected symbols are excluded from statistics but keep
	// contributing their raw value to portfolio totals.
	ErrDataUnavailable = errors.New("price history unavailable")

	// ErrNotFound is returned when an entity does not exist or belongs
	// to another user.
	ErrNotFound = errors.New("not found")
)
