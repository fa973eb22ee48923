package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/mastercook/workshop-booking/internal/model"
)

// ErrCategoryNotFound is returned when a category lookup fails.
var ErrCategoryNotFound = errors.New("category not found")

// ErrInstructorNotFound is returned when an instructor lookup fails.
var ErrInstructorNotFound = errors.New("instructor not found")

// CategoryRepo provides read access to workshop categories.
type CategoryRepo struct{ db *sql.DB }

// NewCategoryRepo constructs a CategoryRepo with the given DB handle.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Category, 0)
    for rows.Next() {
        var c model.Category
        var desc sql.NullString
        if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
            return nil, err
        }
        if desc.Valid {
            d := desc.String
            c.Description = &d
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// GetByID returns a single category or ErrCategoryNotFound.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
    var c model.Category
    var desc sql.NullString
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, description, created_at, updated_at FROM categories WHERE id = ?`, id).
        Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrCategoryNotFound
    }
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        d := desc.String
        c.Description = &d
    }
    return &c, nil
}

// InstructorRepo provides read access to instructors.
type InstructorRepo struct{ db *sql.DB }

// NewInstructorRepo constructs an InstructorRepo with the given DB handle.
func NewInstructorRepo(db *sql.DB) *InstructorRepo { return &InstructorRepo{db: db} }

// List returns all instructors ordered by name.
func (r *InstructorRepo) List(ctx context.Context) ([]model.Instructor, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, name, bio, specialization, email, created_at, updated_at
         FROM instructors ORDER BY name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Instructor, 0)
    for rows.Next() {
        i, err := scanInstructor(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *i)
    }
    return out, rows.Err()
}

// GetByID returns a single instructor or ErrInstructorNotFound.
func (r *InstructorRepo) GetByID(ctx context.Context, id uint64) (*model.Instructor, error) {
    i, err := scanInstructor(r.db.QueryRowContext(ctx,
        `SELECT id, name, bio, specialization, email, created_at, updated_at
         FROM instructors WHERE id = ?`, id))
    if err == sql.ErrNoRows {
        return nil, ErrInstructorNotFound
    }
    return i, err
}

func scanInstructor(row interface{ Scan(...interface{}) error }) (*model.Instructor, error) {
    var i model.Instructor
    var bio, spec sql.NullString
    if err := row.Scan(&i.ID, &i.Name, &bio, &spec, &i.Email, &i.CreatedAt, &i.UpdatedAt); err != nil {
        return nil, err
    }
    if bio.Valid {
        b := bio.String
        i.Bio = &b
    }
    if spec.Valid {
        s := spec.String
        i.Specialization = &s
    }
    return &i, nil
}
