// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package and
// the mattn/go-sqlite3 driver.
//
// CONNECTION MODEL
// ────────────────
// SQLite holds no server-side state, so the store keeps nothing but the
// path of the database file. Every operation opens its own connection,
// runs a single statement and closes the connection again before it
// returns, on success and on error alike. There is no pool shared
// between requests.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// driverName is the database/sql driver registered by this package. It is
// the stock sqlite3 driver plus a fold() SQL function used by search.
const driverName = "sqlite3_students"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// SQLite's own lower() only folds ASCII.
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT    NOT NULL UNIQUE,
		name       TEXT,
		course     TEXT,
		email      TEXT
	)
`

// selectColumns is shared by every query that returns whole records.
// The text columns may be NULL in files written by other tools.
const selectColumns = `id, COALESCE(student_id, ''), COALESCE(name, ''), COALESCE(course, ''), COALESCE(email, '')`

// SQLite is the concrete implementation of storage.Storage.
type SQLite struct {
	path string
}

var _ storage.Storage = (*SQLite)(nil)

// New prepares the SQLite file at cfg.StoragePath, creating the file, its
// directory and the students table if they do not exist yet.
func New(cfg *config.Config) (*SQLite, error) {
	if dir := filepath.Dir(cfg.StoragePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	s := &SQLite{path: cfg.StoragePath}

	err := s.withConn(func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return s, nil
}

// withConn opens a connection, hands it to fn and closes it on every
// exit path. A Close error is reported only if fn itself succeeded.
func (s *SQLite) withConn(fn func(db *sql.DB) error) (err error) {
	db, err := sql.Open(driverName, s.path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
	}()

	db.SetMaxOpenConns(1)

	return fn(db)
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts a new row and returns it with the generated id.
// A UNIQUE violation on student_id is reported as storage.ErrDuplicateKey;
// SQLite rejects the whole statement, so nothing is written.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateStudent(studentID, name, course, email string) (types.Student, error) {
	var student types.Student

	err := s.withConn(func(db *sql.DB) error {
		stmt, err := db.Prepare(
			"INSERT INTO students (student_id, name, course, email) VALUES (?, ?, ?, ?)",
		)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		result, err := stmt.Exec(studentID, name, course, email)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("exec: %w", err)
		}

		lastID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		student = types.Student{
			ID:        lastID,
			StudentID: studentID,
			Name:      name,
			Course:    course,
			Email:     email,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return types.Student{}, err
		}
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}

	return student, nil
}

// GetStudent fetches exactly one row matched by student_id.
func (s *SQLite) GetStudent(studentID string) (types.Student, error) {
	var student types.Student

	err := s.withConn(func(db *sql.DB) error {
		stmt, err := db.Prepare(
			"SELECT " + selectColumns + " FROM students WHERE student_id = ? LIMIT 1",
		)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		err = stmt.QueryRow(studentID).Scan(
			&student.ID,
			&student.StudentID,
			&student.Name,
			&student.Course,
			&student.Email,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Student{}, err
		}
		return types.Student{}, fmt.Errorf("GetStudent: %w", err)
	}

	return student, nil
}

// GetStudents returns all rows in creation order.
func (s *SQLite) GetStudents() ([]types.Student, error) {
	var students []types.Student

	err := s.withConn(func(db *sql.DB) error {
		var err error
		students, err = queryStudents(db,
			"SELECT "+selectColumns+" FROM students ORDER BY id",
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetStudents: %w", err)
	}

	return students, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SearchStudents matches query as a plain substring (no LIKE wildcards) of
// any of the four text columns. Both sides go through fold(), so the match
// ignores case beyond ASCII too. instr(x, '') is 1, so an empty query
// returns every row.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) SearchStudents(query string) ([]types.Student, error) {
	var students []types.Student

	needle := strings.ToLower(query)

	err := s.withConn(func(db *sql.DB) error {
		var err error
		students, err = queryStudents(db, `
			SELECT `+selectColumns+` FROM students
			WHERE instr(fold(COALESCE(student_id, '')), ?) > 0
			   OR instr(fold(COALESCE(name, '')), ?) > 0
			   OR instr(fold(COALESCE(course, '')), ?) > 0
			   OR instr(fold(COALESCE(email, '')), ?) > 0
			ORDER BY id`,
			needle, needle, needle, needle,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("SearchStudents: %w", err)
	}

	return students, nil
}

// CountStudents returns the number of rows in the students table.
func (s *SQLite) CountStudents() (int, error) {
	var count int

	err := s.withConn(func(db *sql.DB) error {
		return db.QueryRow("SELECT COUNT(*) FROM students").Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("CountStudents: %w", err)
	}

	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudent replaces student_id, name, course and email of the row
// currently keyed by oldStudentID. Blank fields are written as blanks.
//
// Zero affected rows means the old id no longer exists; that is logged and
// otherwise ignored. Moving onto a student_id held by a different row
// fails with storage.ErrDuplicateKey and leaves both rows untouched.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) UpdateStudent(oldStudentID string, student types.StudentInput) error {
	err := s.withConn(func(db *sql.DB) error {
		stmt, err := db.Prepare(
			"UPDATE students SET student_id = ?, name = ?, course = ?, email = ? WHERE student_id = ?",
		)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		// argument order matches the placeholders: new values, then the key
		result, err := stmt.Exec(student.StudentID, student.Name, student.Course, student.Email, oldStudentID)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("exec: %w", err)
		}

		if n, err := result.RowsAffected(); err == nil && n == 0 {
			slog.Debug("update matched no student", slog.String("student_id", oldStudentID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("UpdateStudent: %w", err)
	}

	return nil
}

// DeleteStudent removes the row keyed by studentID. Deleting an id that
// does not exist succeeds.
func (s *SQLite) DeleteStudent(studentID string) error {
	err := s.withConn(func(db *sql.DB) error {
		stmt, err := db.Prepare("DELETE FROM students WHERE student_id = ?")
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		if _, err := stmt.Exec(studentID); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteStudent: %w", err)
	}

	return nil
}

// queryStudents runs a multi-row SELECT of selectColumns and scans it.
func queryStudents(db *sql.DB, query string, args ...any) ([]types.Student, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)

	for rows.Next() {
		var student types.Student

		if err := rows.Scan(
			&student.ID,
			&student.StudentID,
			&student.Name,
			&student.Course,
			&student.Email,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return students, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}
