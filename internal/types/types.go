// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles:
// handlers, storage, and the web forms can all import types without
// depending on each other.
package types

// Student represents one row of the students table.
//
// ID is the internal, system-assigned key. It only orders records and is
// never edited. StudentID is the user-facing identifier and is unique
// across all records.
type Student struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Course    string `json:"course"`
	Email     string `json:"email"`
}

// StudentInput is what a client submits when adding or editing a student.
//
// validate:"required" on StudentID and Name are the only checks the
// application makes. Course and Email are free text and may be empty.
type StudentInput struct {
	StudentID string `json:"student_id" validate:"required"`
	Name      string `json:"name"       validate:"required"`
	Course    string `json:"course"`
	Email     string `json:"email"`
}

// QRInput is the payload of the QR code generator form.
type QRInput struct {
	Text     string `validate:"required"`
	FileName string `validate:"required"`
}
