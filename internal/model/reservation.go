package model

import "time"

// Reservation status values.  A reservation is "active" while it is
// Pending or Confirmed; active reservations count against workshop
// capacity and block a second booking by the same user.
const (
    StatusPending   = "Pending"
    StatusConfirmed = "Confirmed"
    StatusCancelled = "Cancelled"
    StatusCompleted = "Completed"
)

// Reservation records a user's booking of a single workshop seat.
// Rows are never physically deleted; cancellation is a status change.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who made the reservation.
//  WorkshopID      – workshop being reserved.
//  ReservationDate – when the booking was placed.
//  Status          – one of the Status* constants above.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
    ID              uint64    // reservations.id
    UserID          uint64    // reservations.user_id
    WorkshopID      uint64    // reservations.workshop_id
    ReservationDate time.Time // reservations.reservation_date
    Status          string    // reservations.status
    CreatedAt       time.Time // reservations.created_at
    UpdatedAt       time.Time // reservations.updated_at
}

// IsActiveStatus reports whether a reservation in the given status
// occupies capacity and blocks duplicate bookings.
func IsActiveStatus(s string) bool {
    return s == StatusPending || s == StatusConfirmed
}

// IsSettableStatus reports whether the status may be assigned through
// the update endpoint.  Pending is only ever set at creation time.
func IsSettableStatus(s string) bool {
    switch s {
    case StatusConfirmed, StatusCancelled, StatusCompleted:
        return true
    }
    return false
}
