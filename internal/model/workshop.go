package model

import "time"

// Workshop represents a bookable cooking workshop as stored in the
// `workshops` table.  Price and capacity drive the reservation rules:
// no reservation may be taken against a workshop whose price is
// missing or negative, and the number of active reservations may
// never exceed Capacity.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – human readable workshop title.
//  Description  – optional free-form text.
//  CategoryID   – foreign key into the categories table (nullable).
//  Date         – calendar date of the session.
//  StartTime    – session start, "HH:MM:SS".
//  EndTime      – session end, "HH:MM:SS".
//  Price        – price per seat, non-negative decimal.
//  Capacity     – maximum number of active reservations.
//  InstructorID – foreign key into the instructors table (nullable).
//  Modality     – delivery mode ("presencial" or "virtual").
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Workshop struct {
    ID           uint64    // workshops.id
    Name         string    // workshops.name
    Description  *string   // workshops.description (nullable)
    CategoryID   *uint64   // workshops.category_id (nullable)
    Date         time.Time // workshops.date
    StartTime    string    // workshops.start_time
    EndTime      string    // workshops.end_time
    Price        float64   // workshops.price
    Capacity     int       // workshops.capacity
    InstructorID *uint64   // workshops.instructor_id (nullable)
    Modality     string    // workshops.modality
    CreatedAt    time.Time // workshops.created_at
    UpdatedAt    time.Time // workshops.updated_at
}

// Category groups workshops by cuisine or theme.
type Category struct {
    ID          uint64    // categories.id
    Name        string    // categories.name
    Description *string   // categories.description (nullable)
    CreatedAt   time.Time // categories.created_at
    UpdatedAt   time.Time // categories.updated_at
}

// Instructor is the person teaching a workshop.  Read-only to the
// booking flow; reservations only denormalize the name.
type Instructor struct {
    ID             uint64    // instructors.id
    Name           string    // instructors.name
    Bio            *string   // instructors.bio (nullable)
    Specialization *string   // instructors.specialization (nullable)
    Email          string    // instructors.email
    CreatedAt      time.Time // instructors.created_at
    UpdatedAt      time.Time // instructors.updated_at
}
