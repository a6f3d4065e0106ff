// Package storage defines the Storage interface, the contract any
// database backend must satisfy to hold student records.
//
// Handlers and web forms depend only on this interface, never on the
// concrete SQLite type.
package storage

import (
	"errors"

	"github.com/aanand-mishra/student-records/internal/types"
)

// ErrDuplicateKey is returned when a write would give two records the
// same StudentID. Nothing is written when it is returned.
var ErrDuplicateKey = errors.New("student id already exists")

// ErrNotFound is returned by lookups of a single record.
var ErrNotFound = errors.New("student not found")

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a new record and returns it with its freshly
	// assigned internal ID. Returns ErrDuplicateKey if studentID is taken.
	CreateStudent(studentID, name, course, email string) (types.Student, error)

	// GetStudent fetches a single record by its StudentID.
	// Returns ErrNotFound if no record matches.
	GetStudent(studentID string) (types.Student, error)

	// GetStudents returns every record in creation order.
	// Returns an empty slice (not nil) if there are none.
	GetStudents() ([]types.Student, error)

	// SearchStudents returns, in creation order, the records whose
	// StudentID, Name, Course or Email contain query, ignoring case.
	// An empty query matches every record.
	SearchStudents(query string) ([]types.Student, error)

	// CountStudents returns the number of stored records.
	CountStudents() (int, error)

	// UpdateStudent overwrites all four mutable fields of the record
	// identified by oldStudentID. A missing record is not an error; the
	// call does nothing. Returns ErrDuplicateKey if student.StudentID
	// belongs to another record.
	UpdateStudent(oldStudentID string, student types.StudentInput) error

	// DeleteStudent removes the record with studentID, if there is one.
	DeleteStudent(studentID string) error
}
