package model

import "time"

// Payment status values.  A payment row is created Pending together
// with its reservation and flips to Paid only when the reservation is
// confirmed.
const (
    PaymentPending = "Pending"
    PaymentPaid    = "Paid"
)

// Payment is the single payment record owned by a reservation.  The
// original schema allowed a list of payments per reservation but only
// ever read the first one; here the relationship is one optional row
// per reservation, enforced by a unique key on reservation_id.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation; unique.
//  Amount        – amount due/paid, mirrors the workshop price at booking time.
//  Status        – Pending or Paid.
//  PaymentMethod – free-form method label ("Credit Card", "card ending in 4242").
//  AuthRef       – SHA-256 hex of the provider authorization reference (nullable).
//  PaymentDate   – when the payment was completed (nullable while Pending).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Payment struct {
    ID            uint64     // payments.id
    ReservationID uint64     // payments.reservation_id
    Amount        float64    // payments.amount
    Status        string     // payments.status
    PaymentMethod *string    // payments.payment_method (nullable)
    AuthRef       *string    // payments.auth_ref (nullable)
    PaymentDate   *time.Time // payments.payment_date (nullable)
    CreatedAt     time.Time  // payments.created_at
    UpdatedAt     time.Time  // payments.updated_at
}
