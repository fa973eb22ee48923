// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when a reservation is confirmed and
// its payment recorded. It carries enough denormalized workshop detail for
// downstream consumers to log or notify without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	UserID        uint64  `json:"user_id"`
	WorkshopID    uint64  `json:"workshop_id"`
	WorkshopName  string  `json:"workshop_name"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	ConfirmedAt   string  `json:"confirmed_at"`
}
