package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/mastercook/workshop-booking/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  A
// reservation references exactly one workshop and owns at most one
// payment row.  All timestamp fields are assumed to be stored in UTC.
//
// Methods suffixed Tx run inside a caller-supplied transaction; the
// booking and confirmation flows group several of them into one
// atomic unit together with PaymentRepo methods.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning reservations and payments.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new Pending reservation within the scope of an
// existing transaction and populates the generated ID and timestamps
// on the provided record.  The caller must commit or rollback.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations (user_id, workshop_id, reservation_date, status)
               VALUES (?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, res.UserID, res.WorkshopID, res.ReservationDate, res.Status)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults
    const sel = `SELECT id, user_id, workshop_id, reservation_date, status, created_at, updated_at
                 FROM reservations WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, res.ID).Scan(
        &res.ID, &res.UserID, &res.WorkshopID, &res.ReservationDate,
        &res.Status, &res.CreatedAt, &res.UpdatedAt,
    )
}

// GetByID returns the bare reservation row.  sql.ErrNoRows is
// returned when the reservation does not exist.  Ownership is not
// checked here; callers compare UserID themselves or use the *ForUser
// variants below.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, user_id, workshop_id, reservation_date, status, created_at, updated_at
               FROM reservations WHERE id = ?`
    var res model.Reservation
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &res.UserID, &res.WorkshopID, &res.ReservationDate,
        &res.Status, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &res, nil
}

// GetByIDTx is GetByID within a transaction, used by confirmation
// flows that must re-read reservation state under the same isolation
// as the writes that follow.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, user_id, workshop_id, reservation_date, status, created_at, updated_at
               FROM reservations WHERE id = ? FOR UPDATE`
    var res model.Reservation
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &res.UserID, &res.WorkshopID, &res.ReservationDate,
        &res.Status, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &res, nil
}

// ActiveCountsTx returns, for each given workshop id, the number of
// reservations currently in an active (Pending or Confirmed) state.
// Run inside the booking transaction after the workshop rows have
// been locked so the counts cannot move under the caller.
func (r *ReservationRepo) ActiveCountsTx(ctx context.Context, tx *sql.Tx, workshopIDs []uint64) (map[uint64]int, error) {
    counts := make(map[uint64]int, len(workshopIDs))
    if len(workshopIDs) == 0 {
        return counts, nil
    }
    placeholders := make([]string, len(workshopIDs))
    args := make([]interface{}, len(workshopIDs))
    for i, id := range workshopIDs {
        placeholders[i] = "?"
        args[i] = id
    }
    q := `SELECT workshop_id, COUNT(*) FROM reservations
          WHERE workshop_id IN (` + strings.Join(placeholders, ",") + `)
            AND status IN ('Pending','Confirmed')
          GROUP BY workshop_id`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var id uint64
        var n int
        if err := rows.Scan(&id, &n); err != nil {
            return nil, err
        }
        counts[id] = n
    }
    return counts, rows.Err()
}

// ActiveWorkshopIDsForUserTx returns the subset of workshopIDs for
// which the user already holds an active reservation.  Used to reject
// duplicate bookings before any row is written.
func (r *ReservationRepo) ActiveWorkshopIDsForUserTx(ctx context.Context, tx *sql.Tx, userID uint64, workshopIDs []uint64) ([]uint64, error) {
    if len(workshopIDs) == 0 {
        return nil, nil
    }
    placeholders := make([]string, len(workshopIDs))
    args := make([]interface{}, 0, len(workshopIDs)+1)
    args = append(args, userID)
    for i, id := range workshopIDs {
        placeholders[i] = "?"
        args = append(args, id)
    }
    q := `SELECT DISTINCT workshop_id FROM reservations
          WHERE user_id = ? AND workshop_id IN (` + strings.Join(placeholders, ",") + `)
            AND status IN ('Pending','Confirmed')`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// UpdateStatus persists a new status for a reservation.  The status
// value must already be validated by the caller.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
    _, err := r.db.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
    return err
}

// UpdateStatusTx is UpdateStatus within a transaction, used when a
// status flip must commit together with payment writes.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
    return err
}

// ReservationDetail is a reservation denormalized with workshop
// fields and the derived payment status.  It is the shape returned
// by every read endpoint, mirroring what callers of the original API
// received.
type ReservationDetail struct {
    ID                uint64  `json:"id"`
    UserID            uint64  `json:"user_id"`
    WorkshopID        uint64  `json:"workshop_id"`
    WorkshopName      *string `json:"workshop_name"`
    WorkshopDate      *string `json:"workshop_date"`
    WorkshopStartTime *string `json:"workshop_start_time"`
    WorkshopEndTime   *string `json:"workshop_end_time"`
    WorkshopPrice     *float64 `json:"workshop_price"`
    WorkshopModality  *string `json:"workshop_modality"`
    ReservationDate   string  `json:"reservation_date"`
    Status            string  `json:"status"`
    PaymentStatus     string  `json:"payment_status"`
    CreatedAt         string  `json:"created_at"`
    UpdatedAt         string  `json:"updated_at"`
}

// detailQuery joins each reservation with its workshop and optional
// payment.  The payment join relies on the one-row-per-reservation
// invariant; COALESCE supplies the default "Pending" payment status
// when no payment row exists yet.
const detailQuery = `SELECT r.id, r.user_id, r.workshop_id,
                            w.name, w.date, w.start_time, w.end_time, w.price, w.modality,
                            r.reservation_date, r.status,
                            COALESCE(p.status, 'Pending'),
                            r.created_at, r.updated_at
                     FROM reservations r
                     LEFT JOIN workshops w ON w.id = r.workshop_id
                     LEFT JOIN payments p ON p.reservation_id = r.id`

func scanDetail(row interface{ Scan(...interface{}) error }) (*ReservationDetail, error) {
    var (
        d        ReservationDetail
        wName    sql.NullString
        wDate    sql.NullTime
        wStart   sql.NullString
        wEnd     sql.NullString
        wPrice   sql.NullFloat64
        wMod     sql.NullString
        resDate  time.Time
        created  time.Time
        updated  time.Time
    )
    if err := row.Scan(&d.ID, &d.UserID, &d.WorkshopID,
        &wName, &wDate, &wStart, &wEnd, &wPrice, &wMod,
        &resDate, &d.Status, &d.PaymentStatus,
        &created, &updated); err != nil {
        return nil, err
    }
    if wName.Valid {
        v := wName.String
        d.WorkshopName = &v
    }
    if wDate.Valid {
        v := wDate.Time.UTC().Format("2006-01-02")
        d.WorkshopDate = &v
    }
    if wStart.Valid {
        v := wStart.String
        d.WorkshopStartTime = &v
    }
    if wEnd.Valid {
        v := wEnd.String
        d.WorkshopEndTime = &v
    }
    if wPrice.Valid {
        v := wPrice.Float64
        d.WorkshopPrice = &v
    }
    if wMod.Valid {
        v := wMod.String
        d.WorkshopModality = &v
    }
    d.ReservationDate = resDate.UTC().Format(time.RFC3339)
    d.CreatedAt = created.UTC().Format(time.RFC3339)
    d.UpdatedAt = updated.UTC().Format(time.RFC3339)
    return &d, nil
}

// GetDetail returns a single denormalized reservation.  sql.ErrNoRows
// is returned when it does not exist.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*ReservationDetail, error) {
    return scanDetail(r.db.QueryRowContext(ctx, detailQuery+` WHERE r.id = ?`, id))
}

// ListByUser returns all reservations for the given user, newest
// first, optionally filtered by exact status match.  When none exist
// an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]ReservationDetail, error) {
    q := detailQuery + ` WHERE r.user_id = ?`
    args := []interface{}{userID}
    if status != "" {
        q += ` AND r.status = ?`
        args = append(args, status)
    }
    q += ` ORDER BY r.created_at DESC`
    return r.listDetails(ctx, q, args...)
}

// ListByWorkshop returns every reservation against a workshop,
// regardless of owner.  Administrative read used by instructors.
func (r *ReservationRepo) ListByWorkshop(ctx context.Context, workshopID uint64) ([]ReservationDetail, error) {
    return r.listDetails(ctx, detailQuery+` WHERE r.workshop_id = ? ORDER BY r.created_at DESC`, workshopID)
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, args ...interface{}) ([]ReservationDetail, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]ReservationDetail, 0)
    for rows.Next() {
        d, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        details = append(details, *d)
    }
    return details, rows.Err()
}
