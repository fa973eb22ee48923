// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrAlreadyPaid signals that a payment cannot be applied a
// second time.
package repository

import "errors"

// ErrWorkshopNotFound is returned when a workshop lookup fails.
var ErrWorkshopNotFound = errors.New("workshop not found")

// ErrAlreadyPaid is returned when attempting to pay a reservation
// whose payment row is already in the Paid state.
var ErrAlreadyPaid = errors.New("payment already completed for this reservation")
