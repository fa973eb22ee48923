package repository

import (
    "context"
    "database/sql"
    "sort"
    "strings"
    "time"

    "github.com/mastercook/workshop-booking/internal/model"
)

// WorkshopRepo provides CRUD operations for workshops plus the
// capacity-oriented reads used by the booking flow.  Workshop price
// and capacity are owned by the catalog; the booking flow only ever
// reads them, but it must read them under row locks so that two
// concurrent bookings cannot both pass the capacity check.
type WorkshopRepo struct {
    db *sql.DB
}

// NewWorkshopRepo returns a new WorkshopRepo bound to the given database.
func NewWorkshopRepo(db *sql.DB) *WorkshopRepo { return &WorkshopRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// that span several repositories.
func (r *WorkshopRepo) DB() *sql.DB { return r.db }

const workshopCols = `id, name, description, category_id, date, start_time, end_time,
                      price, capacity, instructor_id, modality, created_at, updated_at`

func scanWorkshop(row interface{ Scan(...interface{}) error }) (*model.Workshop, error) {
    var (
        w          model.Workshop
        desc       sql.NullString
        categoryID sql.NullInt64
        instrID    sql.NullInt64
    )
    err := row.Scan(&w.ID, &w.Name, &desc, &categoryID, &w.Date, &w.StartTime, &w.EndTime,
        &w.Price, &w.Capacity, &instrID, &w.Modality, &w.CreatedAt, &w.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        d := desc.String
        w.Description = &d
    }
    if categoryID.Valid {
        c := uint64(categoryID.Int64)
        w.CategoryID = &c
    }
    if instrID.Valid {
        i := uint64(instrID.Int64)
        w.InstructorID = &i
    }
    return &w, nil
}

// GetByID returns a single workshop.  ErrWorkshopNotFound is returned
// when no row exists.
func (r *WorkshopRepo) GetByID(ctx context.Context, id uint64) (*model.Workshop, error) {
    const q = `SELECT ` + workshopCols + ` FROM workshops WHERE id = ?`
    w, err := scanWorkshop(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrWorkshopNotFound
    }
    return w, err
}

// GetByIDsForUpdateTx loads all requested workshops inside the given
// transaction with `FOR UPDATE` row locks.  IDs are sorted before the
// query so that concurrent batch bookings acquire locks in the same
// order and cannot deadlock each other.  The result map only contains
// ids that exist; callers detect missing workshops by comparing keys.
func (r *WorkshopRepo) GetByIDsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]*model.Workshop, error) {
    if len(ids) == 0 {
        return map[uint64]*model.Workshop{}, nil
    }
    sorted := make([]uint64, len(ids))
    copy(sorted, ids)
    sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

    placeholders := make([]string, len(sorted))
    args := make([]interface{}, len(sorted))
    for i, id := range sorted {
        placeholders[i] = "?"
        args[i] = id
    }
    q := `SELECT ` + workshopCols + ` FROM workshops WHERE id IN (` +
        strings.Join(placeholders, ",") + `) ORDER BY id FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[uint64]*model.Workshop, len(sorted))
    for rows.Next() {
        w, err := scanWorkshop(rows)
        if err != nil {
            return nil, err
        }
        out[w.ID] = w
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// WorkshopListing is a workshop row denormalized with category and
// instructor names plus the number of slots still available.  It is
// returned to catalog consumers and carries JSON tags directly.
type WorkshopListing struct {
    ID             uint64  `json:"id"`
    Name           string  `json:"name"`
    Description    *string `json:"description"`
    CategoryID     *uint64 `json:"category_id"`
    CategoryName   *string `json:"category_name"`
    Date           string  `json:"date"`
    StartTime      string  `json:"start_time"`
    EndTime        string  `json:"end_time"`
    Price          float64 `json:"price"`
    Capacity       int     `json:"capacity"`
    InstructorID   *uint64 `json:"instructor_id"`
    InstructorName *string `json:"instructor_name"`
    Modality       string  `json:"modality"`
    AvailableSlots int     `json:"available_slots"`
}

const listingQuery = `SELECT w.id, w.name, w.description, w.category_id, c.name,
                             w.date, w.start_time, w.end_time, w.price, w.capacity,
                             w.instructor_id, i.name, w.modality,
                             (SELECT COUNT(*) FROM reservations r
                              WHERE r.workshop_id = w.id AND r.status IN ('Pending','Confirmed'))
                      FROM workshops w
                      LEFT JOIN categories c ON c.id = w.category_id
                      LEFT JOIN instructors i ON i.id = w.instructor_id`

func scanListing(rows *sql.Rows) (*WorkshopListing, error) {
    var (
        l           WorkshopListing
        desc        sql.NullString
        catID       sql.NullInt64
        catName     sql.NullString
        date        time.Time
        instrID     sql.NullInt64
        instrName   sql.NullString
        activeCount int
    )
    if err := rows.Scan(&l.ID, &l.Name, &desc, &catID, &catName,
        &date, &l.StartTime, &l.EndTime, &l.Price, &l.Capacity,
        &instrID, &instrName, &l.Modality, &activeCount); err != nil {
        return nil, err
    }
    if desc.Valid {
        d := desc.String
        l.Description = &d
    }
    if catID.Valid {
        c := uint64(catID.Int64)
        l.CategoryID = &c
    }
    if catName.Valid {
        n := catName.String
        l.CategoryName = &n
    }
    if instrID.Valid {
        i := uint64(instrID.Int64)
        l.InstructorID = &i
    }
    if instrName.Valid {
        n := instrName.String
        l.InstructorName = &n
    }
    l.Date = date.UTC().Format("2006-01-02")
    l.AvailableSlots = l.Capacity - activeCount
    if l.AvailableSlots < 0 {
        l.AvailableSlots = 0
    }
    return &l, nil
}

// List returns all workshops with derived availability, optionally
// filtered by category and/or modality.  Availability counts every
// active (Pending or Confirmed) reservation; the same policy the
// booking transaction enforces.
func (r *WorkshopRepo) List(ctx context.Context, categoryID uint64, modality string) ([]WorkshopListing, error) {
    q := listingQuery
    var clauses []string
    var args []interface{}
    if categoryID != 0 {
        clauses = append(clauses, "w.category_id = ?")
        args = append(args, categoryID)
    }
    if modality != "" {
        clauses = append(clauses, "w.modality = ?")
        args = append(args, modality)
    }
    if len(clauses) > 0 {
        q += " WHERE " + strings.Join(clauses, " AND ")
    }
    q += " ORDER BY w.date, w.start_time"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]WorkshopListing, 0)
    for rows.Next() {
        l, err := scanListing(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *l)
    }
    return out, rows.Err()
}

// GetListing returns a single workshop with derived availability.
func (r *WorkshopRepo) GetListing(ctx context.Context, id uint64) (*WorkshopListing, error) {
    rows, err := r.db.QueryContext(ctx, listingQuery+" WHERE w.id = ?", id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    if !rows.Next() {
        if err := rows.Err(); err != nil {
            return nil, err
        }
        return nil, ErrWorkshopNotFound
    }
    return scanListing(rows)
}

// Create inserts a workshop and populates the generated ID plus the
// database-defaulted timestamps on the passed record.
func (r *WorkshopRepo) Create(ctx context.Context, w *model.Workshop) error {
    const q = `INSERT INTO workshops (name, description, category_id, date, start_time, end_time,
                                      price, capacity, instructor_id, modality)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, w.Name, w.Description, w.CategoryID,
        w.Date.Format("2006-01-02"), w.StartTime, w.EndTime,
        w.Price, w.Capacity, w.InstructorID, w.Modality)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    w.ID = uint64(id)
    const sel = `SELECT ` + workshopCols + ` FROM workshops WHERE id = ?`
    got, err := scanWorkshop(r.db.QueryRowContext(ctx, sel, w.ID))
    if err != nil {
        return err
    }
    *w = *got
    return nil
}

// Update persists the mutable fields of a workshop.  Returns
// ErrWorkshopNotFound when the row does not exist.
func (r *WorkshopRepo) Update(ctx context.Context, w *model.Workshop) error {
    const q = `UPDATE workshops
               SET name = ?, description = ?, category_id = ?, date = ?, start_time = ?,
                   end_time = ?, price = ?, capacity = ?, instructor_id = ?, modality = ?
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, w.Name, w.Description, w.CategoryID,
        w.Date.Format("2006-01-02"), w.StartTime, w.EndTime,
        w.Price, w.Capacity, w.InstructorID, w.Modality, w.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // distinguish "not found" from "no change"
        var one int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM workshops WHERE id = ?`, w.ID).Scan(&one); err == sql.ErrNoRows {
            return ErrWorkshopNotFound
        } else if err != nil {
            return err
        }
    }
    return nil
}

// Delete removes a workshop.  Returns ErrWorkshopNotFound when no row
// was deleted.  Reservations referencing the workshop are retained.
func (r *WorkshopRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM workshops WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrWorkshopNotFound
    }
    return nil
}
