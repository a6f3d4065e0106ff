package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// Every operation closes its own connection, so nothing may linger.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := New(&config.Config{
		StoragePath: filepath.Join(t.TempDir(), "data", "students.db"),
	})
	require.NoError(t, err)
	return s
}

func mustCreate(t *testing.T, s *SQLite, studentID, name, course, email string) types.Student {
	t.Helper()

	student, err := s.CreateStudent(studentID, name, course, email)
	require.NoError(t, err)
	return student
}

func TestCreateThenList(t *testing.T) {
	s := newTestStore(t)

	created := mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")
	assert.Equal(t, int64(1), created.ID)

	students, err := s.GetStudents()
	require.NoError(t, err)
	assert.Equal(t, []types.Student{
		{ID: 1, StudentID: "S1", Name: "Alice", Course: "CS", Email: "a@x.com"},
	}, students)
}

func TestGetStudentsEmpty(t *testing.T) {
	s := newTestStore(t)

	students, err := s.GetStudents()
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
}

func TestCreateDuplicateKey(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")

	_, err := s.CreateStudent("S1", "Bob", "Math", "b@x.com")
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	students, err := s.GetStudents()
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Alice", students[0].Name)
}

func TestInternalIDsAreNotReused(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "S1", "Alice", "", "")
	require.NoError(t, s.DeleteStudent("S1"))

	again := mustCreate(t, s, "S1", "Alice", "", "")
	assert.Equal(t, int64(2), again.ID)
}

func TestGetStudent(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")

	student, err := s.GetStudent("S1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", student.Name)

	_, err = s.GetStudent("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateStudent(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")

	err := s.UpdateStudent("S1", types.StudentInput{
		StudentID: "S2", Name: "Bob", Course: "Math", Email: "b@x.com",
	})
	require.NoError(t, err)

	students, err := s.GetStudents()
	require.NoError(t, err)
	assert.Equal(t, []types.Student{
		{ID: 1, StudentID: "S2", Name: "Bob", Course: "Math", Email: "b@x.com"},
	}, students)
}

func TestUpdateKeepsOwnStudentID(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")

	require.NoError(t, s.UpdateStudent("S1", types.StudentInput{StudentID: "S1", Name: "Alicia"}))

	student, err := s.GetStudent("S1")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", student.Name)
	// blanks overwrite
	assert.Empty(t, student.Course)
	assert.Empty(t, student.Email)
}

func TestUpdateMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")

	before, err := s.GetStudents()
	require.NoError(t, err)

	err = s.UpdateStudent("nope", types.StudentInput{StudentID: "S9", Name: "Zed"})
	require.NoError(t, err)

	after, err := s.GetStudents()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateCollisionIsRejected(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")
	mustCreate(t, s, "S2", "Bob", "Math", "b@x.com")

	before, err := s.GetStudents()
	require.NoError(t, err)

	err = s.UpdateStudent("S1", types.StudentInput{StudentID: "S2", Name: "Alice"})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	after, err := s.GetStudents()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeleteStudent(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "alice-only@x.com")

	require.NoError(t, s.DeleteStudent("S1"))

	students, err := s.GetStudents()
	require.NoError(t, err)
	assert.Empty(t, students)

	found, err := s.SearchStudents("alice-only")
	require.NoError(t, err)
	assert.Empty(t, found)

	// deleting again is fine
	require.NoError(t, s.DeleteStudent("S1"))
}

func TestSearchStudents(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")
	mustCreate(t, s, "S2", "Bob", "Math", "bob@uni.edu")
	mustCreate(t, s, "X3", "Carol", "Physics", "carol@x.com")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"by student id", "s2", []string{"S2"}},
		{"by student id prefix", "x3", []string{"X3"}},
		{"across columns", "s", []string{"S1", "S2", "X3"}},
		{"by name", "bob", []string{"S2"}},
		{"by course", "phys", []string{"X3"}},
		{"by email", "@x.com", []string{"S1", "X3"}},
		{"upper case", "ALICE", []string{"S1"}},
		{"no match", "zzz", nil},
		{"percent is literal", "%", nil},
		{"underscore is literal", "_", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := s.SearchStudents(tt.query)
			require.NoError(t, err)

			var ids []string
			for _, st := range found {
				ids = append(ids, st.StudentID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchIgnoresCase(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S1", "Alice", "CS", "a@x.com")
	mustCreate(t, s, "S2", "Élodie", "Art", "e@x.com")

	upper, err := s.SearchStudents("ALICE")
	require.NoError(t, err)
	lower, err := s.SearchStudents("alice")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
	assert.Len(t, lower, 1)

	accented, err := s.SearchStudents("éLODIE")
	require.NoError(t, err)
	require.Len(t, accented, 1)
	assert.Equal(t, "S2", accented[0].StudentID)
}

func TestSearchEmptyMatchesList(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "S2", "Bob", "", "")
	mustCreate(t, s, "S1", "Alice", "", "")

	all, err := s.GetStudents()
	require.NoError(t, err)

	found, err := s.SearchStudents("")
	require.NoError(t, err)
	assert.Equal(t, all, found)
	assert.Equal(t, "S2", found[0].StudentID)
}

func TestCountStudents(t *testing.T) {
	s := newTestStore(t)

	n, err := s.CountStudents()
	require.NoError(t, err)
	assert.Zero(t, n)

	mustCreate(t, s, "S1", "Alice", "", "")
	mustCreate(t, s, "S2", "Bob", "", "")

	n, err = s.CountStudents()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNullColumnsReadAsEmpty(t *testing.T) {
	s := newTestStore(t)

	err := s.withConn(func(db *sql.DB) error {
		_, err := db.Exec("INSERT INTO students (student_id, name) VALUES ('S1', NULL)")
		return err
	})
	require.NoError(t, err)

	students, err := s.GetStudents()
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Empty(t, students[0].Name)

	found, err := s.SearchStudents("s1")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.db")

	first, err := New(&config.Config{StoragePath: path})
	require.NoError(t, err)
	mustCreate(t, first, "S1", "Alice", "CS", "a@x.com")

	second, err := New(&config.Config{StoragePath: path})
	require.NoError(t, err)

	students, err := second.GetStudents()
	require.NoError(t, err)
	assert.Len(t, students, 1)
}
