package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercook/workshop-booking/internal/database"
	"github.com/mastercook/workshop-booking/internal/model"
)

func TestBookingRoundtrip(t *testing.T) {
	// Integration test - requires a MySQL instance with the schema loaded.
	t.Skip("Integration test - requires database")

	db, err := database.Open("root", "", "localhost", "3306", "workshop_booking_test")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	workshops := NewWorkshopRepo(db)
	reservations := NewReservationRepo(db)
	payments := NewPaymentRepo(db)

	w := &model.Workshop{
		Name:      "Knife Skills",
		Date:      time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "18:00:00",
		EndTime:   "20:00:00",
		Price:     35.0,
		Capacity:  8,
		Modality:  "presencial",
	}
	require.NoError(t, workshops.Create(ctx, w))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	locked, err := workshops.GetByIDsForUpdateTx(ctx, tx, []uint64{w.ID})
	require.NoError(t, err)
	require.Contains(t, locked, w.ID)

	res := &model.Reservation{
		UserID:          1,
		WorkshopID:      w.ID,
		ReservationDate: time.Now().UTC(),
		Status:          model.StatusPending,
	}
	require.NoError(t, reservations.CreateTx(ctx, tx, res))
	require.NotZero(t, res.ID)

	pay, err := payments.CreatePendingTx(ctx, tx, res.ID, w.Price)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, pay.Status)

	counts, err := reservations.ActiveCountsTx(ctx, tx, []uint64{w.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[w.ID])

	held, err := reservations.ActiveWorkshopIDsForUserTx(ctx, tx, 1, []uint64{w.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{w.ID}, held)

	require.NoError(t, tx.Commit())

	// Paying confirms and is rejected on repeat.
	tx2, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx2.Rollback()
	_, err = payments.UpsertPaidTx(ctx, tx2, res.ID, w.Price, "Simulated", nil)
	require.NoError(t, err)
	require.NoError(t, reservations.UpdateStatusTx(ctx, tx2, res.ID, model.StatusConfirmed))
	require.NoError(t, tx2.Commit())

	tx3, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx3.Rollback()
	_, err = payments.UpsertPaidTx(ctx, tx3, res.ID, w.Price, "Simulated", nil)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}
