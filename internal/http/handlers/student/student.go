// Package student contains the JSON HTTP handlers for student records.
//
// Every handler is built by a factory that receives the storage and
// returns the http.HandlerFunc the router needs:
//
//	r.Post("/api/students", student.New(storage))
//
// New(storage) runs once at start-up; the returned closure runs on every
// request.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// URLParam is the route parameter carrying the user-facing student id.
const URLParam = "studentID"

var validate = validator.New()

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body:
//
//	{ "student_id": "S1", "name": "Alice", "course": "CS", "email": "a@x.com" }
//
// Responses:
//
//	201 Created: the stored record, including its internal id
//	400 Bad Request: empty body, malformed JSON, or missing student_id/name
//	409 Conflict: student_id already exists
//	500 Internal: database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		input, ok := decodeInput(w, r)
		if !ok {
			return
		}

		created, err := storage.CreateStudent(input.StudentID, input.Name, input.Course, input.Email)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("student created",
			slog.Int64("id", created.ID),
			slog.String("student_id", created.StudentID))

		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByStudentID handles GET /api/students/{studentID}
//
// Responses:
//
//	200 OK: the record
//	404 Not Found: no record has that student_id
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByStudentID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, URLParam)
		slog.Info("getting a student", slog.String("student_id", studentID))

		student, err := storage.GetStudent(studentID)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students and GET /api/students?q=alice
//
// Without q every record is returned in creation order. With q only records
// containing q (case-insensitively) in any text field are returned.
// Always an array, [] when empty.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			students []types.Student
			err      error
		)

		if r.URL.Query().Has("q") {
			query := r.URL.Query().Get("q")
			slog.Info("searching students", slog.String("query", query))
			students, err = storage.SearchStudents(query)
		} else {
			slog.Info("getting all students")
			students, err = storage.GetStudents()
		}
		if err != nil {
			writeStoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{studentID}
// Replaces student_id, name, course and email of the record.
//
// An unknown {studentID} is not an error: nothing changes and the reply is
// still 200. Moving to a student_id owned by another record is 409.
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, URLParam)
		slog.Info("updating a student", slog.String("student_id", studentID))

		input, ok := decodeInput(w, r)
		if !ok {
			return
		}

		if err := storage.UpdateStudent(studentID, input); err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("student updated", slog.String("student_id", studentID))
		response.WriteJSON(w, http.StatusOK, response.Response{Status: response.StatusOK})
	}
}

// Delete handles DELETE /api/students/{studentID}. Deleting an unknown id
// succeeds.
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, URLParam)
		slog.Info("deleting a student", slog.String("student_id", studentID))

		if err := storage.DeleteStudent(studentID); err != nil {
			writeStoreError(w, err)
			return
		}

		slog.Info("student deleted", slog.String("student_id", studentID))
		response.WriteJSON(w, http.StatusOK, response.Response{Status: response.StatusDeleted})
	}
}

// decodeInput reads and validates a StudentInput body. On failure it has
// already written the 400 reply and returns false.
func decodeInput(w http.ResponseWriter, r *http.Request) (types.StudentInput, bool) {
	var input types.StudentInput

	err := json.NewDecoder(r.Body).Decode(&input)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return input, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return input, false
	}

	if err := validate.Struct(input); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return input, false
	}

	return input, true
}

// writeStoreError maps storage errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
	default:
		slog.Error("storage failure", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError,
			response.GeneralError(errors.New("internal storage error")))
	}
}
