package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/mastercook/workshop-booking/internal/model"
)

// PaymentRepo provides access to the payments table.  Every
// reservation owns at most one payment row (unique key on
// reservation_id); the create-or-update semantics below rely on that
// invariant instead of scanning a list and taking the first entry.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = `id, reservation_id, amount, status, payment_method, auth_ref,
                     payment_date, created_at, updated_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (*model.Payment, error) {
    var (
        p       model.Payment
        method  sql.NullString
        authRef sql.NullString
        payDate sql.NullTime
    )
    err := row.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Status,
        &method, &authRef, &payDate, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if method.Valid {
        m := method.String
        p.PaymentMethod = &m
    }
    if authRef.Valid {
        a := authRef.String
        p.AuthRef = &a
    }
    if payDate.Valid {
        t := payDate.Time
        p.PaymentDate = &t
    }
    return &p, nil
}

// GetByReservation returns the payment row for a reservation.
// sql.ErrNoRows is returned when no payment exists yet.
func (r *PaymentRepo) GetByReservation(ctx context.Context, reservationID uint64) (*model.Payment, error) {
    const q = `SELECT ` + paymentCols + ` FROM payments WHERE reservation_id = ?`
    return scanPayment(r.db.QueryRowContext(ctx, q, reservationID))
}

// CreatePendingTx inserts the initial Pending payment that accompanies
// a freshly created reservation.  Runs inside the booking transaction.
func (r *PaymentRepo) CreatePendingTx(ctx context.Context, tx *sql.Tx, reservationID uint64, amount float64) (*model.Payment, error) {
    const q = `INSERT INTO payments (reservation_id, amount, status) VALUES (?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, reservationID, amount, model.PaymentPending)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    const sel = `SELECT ` + paymentCols + ` FROM payments WHERE id = ?`
    return scanPayment(tx.QueryRowContext(ctx, sel, id))
}

// UpsertPaidTx creates or updates the single payment row for a
// reservation, marking it Paid with the given amount, method and
// optional hashed authorization reference.  When the existing row is
// already Paid, ErrAlreadyPaid is returned and nothing is written.
// Runs inside the caller's transaction so a batch of confirmations
// commits or rolls back as one unit.
func (r *PaymentRepo) UpsertPaidTx(ctx context.Context, tx *sql.Tx, reservationID uint64, amount float64, method string, authRef *string) (*model.Payment, error) {
    // Lock the existing row (if any) so two confirmations of the same
    // reservation serialize on the already-paid check.
    var (
        existingID uint64
        status     string
    )
    err := tx.QueryRowContext(ctx,
        `SELECT id, status FROM payments WHERE reservation_id = ? FOR UPDATE`,
        reservationID).Scan(&existingID, &status)
    now := time.Now().UTC()
    switch {
    case err == sql.ErrNoRows:
        const ins = `INSERT INTO payments (reservation_id, amount, status, payment_method, auth_ref, payment_date)
                     VALUES (?, ?, ?, ?, ?, ?)`
        res, insErr := tx.ExecContext(ctx, ins, reservationID, amount, model.PaymentPaid, method, authRef, now)
        if insErr != nil {
            return nil, insErr
        }
        id, insErr := res.LastInsertId()
        if insErr != nil {
            return nil, insErr
        }
        existingID = uint64(id)
    case err != nil:
        return nil, err
    case status == model.PaymentPaid:
        return nil, ErrAlreadyPaid
    default:
        const upd = `UPDATE payments
                     SET amount = ?, status = ?, payment_method = ?, auth_ref = ?, payment_date = ?
                     WHERE id = ?`
        if _, updErr := tx.ExecContext(ctx, upd, amount, model.PaymentPaid, method, authRef, now, existingID); updErr != nil {
            return nil, updErr
        }
    }
    const sel = `SELECT ` + paymentCols + ` FROM payments WHERE id = ?`
    return scanPayment(tx.QueryRowContext(ctx, sel, existingID))
}

// IsPaid reports whether the reservation's payment row exists and is
// already in the Paid state.
func (r *PaymentRepo) IsPaid(ctx context.Context, reservationID uint64) (bool, error) {
    var status string
    err := r.db.QueryRowContext(ctx,
        `SELECT status FROM payments WHERE reservation_id = ?`, reservationID).Scan(&status)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return status == model.PaymentPaid, nil
}

// ListForUser returns all payments belonging to the user's
// reservations, newest first.
func (r *PaymentRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
    const q = `SELECT p.id, p.reservation_id, p.amount, p.status, p.payment_method, p.auth_ref,
                      p.payment_date, p.created_at, p.updated_at
               FROM payments p
               JOIN reservations r ON r.id = p.reservation_id
               WHERE r.user_id = ?
               ORDER BY p.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    payments := make([]model.Payment, 0)
    for rows.Next() {
        p, err := scanPayment(rows)
        if err != nil {
            return nil, err
        }
        payments = append(payments, *p)
    }
    return payments, rows.Err()
}
