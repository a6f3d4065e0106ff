// Package web is the form controller: it renders the HTML pages behind
// each menu Action, checks the few required fields, calls the record
// store and shows the outcome.
//
// Nothing is kept between requests. Every page that offers a choice of
// student ids reads them from the store again when it is rendered.
package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/clock"
	"github.com/aanand-mishra/student-records/internal/qr"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

//go:embed templates/*.html
var templateFS embed.FS

// Messages shown after a form submission.
const (
	MsgAdded       = "Student added successfully!"
	MsgDuplicate   = "Student ID already exists!"
	MsgRequired    = "Student ID & Name are required!"
	MsgUpdated     = "Student updated successfully!"
	MsgDeleted     = "Student deleted!"
	MsgQRRequired  = "Text and file name are required!"
	MsgQRBadName   = "File name must be a plain name without folders."
	MsgFailure     = "Something went wrong. Please try again."
	flashSuccess   = "success"
	flashError     = "error"
	clockStreamSub = "/stream"
)

// Flash is the one-line outcome of a submitted form.
type Flash struct {
	Kind    string
	Message string
}

// page is the data every template receives. Pages read only the fields
// they need.
type page struct {
	Action Action
	Menu   []Action
	Flash  *Flash

	Total      int
	Students   []types.Student
	StudentIDs []string
	Query      string
	Form       types.StudentInput
	Selected   string

	QRText     string
	QRFileName string
	QRImage    template.URL

	Tick       clock.Tick
	StreamPath string
}

// Controller serves every menu page.
type Controller struct {
	storage  storage.Storage
	qr       *qr.Generator
	clock    *clock.Clock
	validate *validator.Validate
	pages    map[Action]*template.Template
}

// New parses the embedded templates and returns a ready Controller.
func New(storage storage.Storage, qrGen *qr.Generator, clk *clock.Clock) (*Controller, error) {
	pages := make(map[Action]*template.Template, len(Actions))

	for _, a := range Actions {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+a.template())
		if err != nil {
			return nil, fmt.Errorf("web.New: parse %s: %w", a.template(), err)
		}
		pages[a] = t
	}

	return &Controller{
		storage:  storage,
		qr:       qrGen,
		clock:    clk,
		validate: validator.New(),
		pages:    pages,
	}, nil
}

// Routes registers one GET handler per Action, plus POST handlers for the
// pages that submit a form.
func (c *Controller) Routes(r chi.Router) {
	r.Get(ActionDashboard.Path(), c.Dashboard)

	r.Get(ActionAddStudent.Path(), c.AddStudentForm)
	r.Post(ActionAddStudent.Path(), c.AddStudent)

	r.Get(ActionViewStudents.Path(), c.ViewStudents)

	r.Get(ActionUpdateStudent.Path(), c.UpdateStudentForm)
	r.Post(ActionUpdateStudent.Path(), c.UpdateStudent)

	r.Get(ActionDeleteStudent.Path(), c.DeleteStudentForm)
	r.Post(ActionDeleteStudent.Path(), c.DeleteStudent)

	r.Get(ActionQRCode.Path(), c.QRCodeForm)
	r.Post(ActionQRCode.Path(), c.GenerateQRCode)

	r.Get(ActionClock.Path(), c.Clock)
	r.Get(ActionClock.Path()+clockStreamSub, c.clock.Stream)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dashboard handles GET /
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) Dashboard(w http.ResponseWriter, r *http.Request) {
	p := page{Action: ActionDashboard}

	total, err := c.storage.CountStudents()
	if err != nil {
		c.fail(w, p, err)
		return
	}
	p.Total = total

	c.render(w, http.StatusOK, p)
}

// ─────────────────────────────────────────────────────────────────────────────
// AddStudentForm handles GET /students/new and AddStudent handles the POST.
//
// student_id and name must be present; the store is not called otherwise.
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) AddStudentForm(w http.ResponseWriter, r *http.Request) {
	c.render(w, http.StatusOK, page{Action: ActionAddStudent})
}

func (c *Controller) AddStudent(w http.ResponseWriter, r *http.Request) {
	p := page{Action: ActionAddStudent, Form: studentInput(r, "student_id")}

	if err := c.validate.Struct(p.Form); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			slog.Debug("add student rejected",
				slog.String("reason", response.ValidationMessage(validateErrs)))
		}
		p.Flash = &Flash{Kind: flashError, Message: MsgRequired}
		c.render(w, http.StatusBadRequest, p)
		return
	}

	created, err := c.storage.CreateStudent(p.Form.StudentID, p.Form.Name, p.Form.Course, p.Form.Email)
	if errors.Is(err, storage.ErrDuplicateKey) {
		p.Flash = &Flash{Kind: flashError, Message: MsgDuplicate}
		c.render(w, http.StatusConflict, p)
		return
	}
	if err != nil {
		c.fail(w, p, err)
		return
	}

	slog.Info("student created",
		slog.Int64("id", created.ID),
		slog.String("student_id", created.StudentID))

	c.render(w, http.StatusOK, page{
		Action: ActionAddStudent,
		Flash:  &Flash{Kind: flashSuccess, Message: MsgAdded},
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// ViewStudents handles GET /students and GET /students?q=
//
// Without q every record is listed; with q the list is narrowed by search.
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) ViewStudents(w http.ResponseWriter, r *http.Request) {
	p := page{Action: ActionViewStudents, Query: r.URL.Query().Get("q")}

	var err error
	if p.Query == "" {
		p.Students, err = c.storage.GetStudents()
	} else {
		p.Students, err = c.storage.SearchStudents(p.Query)
	}
	if err != nil {
		c.fail(w, p, err)
		return
	}

	c.render(w, http.StatusOK, p)
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudentForm handles GET /students/edit and UpdateStudent the POST.
//
// The submitted values replace the stored ones as they are, blanks
// included. Picking an id that has since vanished changes nothing and
// still reports success.
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) UpdateStudentForm(w http.ResponseWriter, r *http.Request) {
	c.renderWithIDs(w, http.StatusOK, page{Action: ActionUpdateStudent})
}

func (c *Controller) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	oldID := r.PostFormValue("old_student_id")
	p := page{Action: ActionUpdateStudent, Selected: oldID}

	err := c.storage.UpdateStudent(oldID, studentInput(r, "new_student_id"))
	if errors.Is(err, storage.ErrDuplicateKey) {
		p.Flash = &Flash{Kind: flashError, Message: MsgDuplicate}
		c.renderWithIDs(w, http.StatusConflict, p)
		return
	}
	if err != nil {
		c.fail(w, p, err)
		return
	}

	slog.Info("student updated", slog.String("student_id", oldID))

	p.Selected = ""
	p.Flash = &Flash{Kind: flashSuccess, Message: MsgUpdated}
	c.renderWithIDs(w, http.StatusOK, p)
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteStudentForm handles GET /students/delete and DeleteStudent the POST.
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) DeleteStudentForm(w http.ResponseWriter, r *http.Request) {
	c.renderWithIDs(w, http.StatusOK, page{Action: ActionDeleteStudent})
}

func (c *Controller) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID := r.PostFormValue("student_id")
	p := page{Action: ActionDeleteStudent}

	if err := c.storage.DeleteStudent(studentID); err != nil {
		c.fail(w, p, err)
		return
	}

	slog.Info("student deleted", slog.String("student_id", studentID))

	p.Flash = &Flash{Kind: flashSuccess, Message: MsgDeleted}
	c.renderWithIDs(w, http.StatusOK, p)
}

// ─────────────────────────────────────────────────────────────────────────────
// QRCodeForm handles GET /qr and GenerateQRCode the POST.
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) QRCodeForm(w http.ResponseWriter, r *http.Request) {
	c.render(w, http.StatusOK, page{Action: ActionQRCode, QRFileName: qr.DefaultName})
}

func (c *Controller) GenerateQRCode(w http.ResponseWriter, r *http.Request) {
	input := types.QRInput{
		Text:     r.PostFormValue("text"),
		FileName: r.PostFormValue("filename"),
	}
	p := page{Action: ActionQRCode, QRText: input.Text, QRFileName: input.FileName}

	if err := c.validate.Struct(input); err != nil {
		p.Flash = &Flash{Kind: flashError, Message: MsgQRRequired}
		c.render(w, http.StatusBadRequest, p)
		return
	}

	img, err := c.qr.Generate(input.Text, input.FileName)
	if errors.Is(err, qr.ErrInvalidName) {
		p.Flash = &Flash{Kind: flashError, Message: MsgQRBadName}
		c.render(w, http.StatusBadRequest, p)
		return
	}
	if err != nil {
		c.fail(w, p, err)
		return
	}

	slog.Info("qr code generated", slog.String("path", img.Path))

	p.QRImage = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG))
	p.Flash = &Flash{Kind: flashSuccess, Message: "Saved as " + img.Path}
	c.render(w, http.StatusOK, p)
}

// ─────────────────────────────────────────────────────────────────────────────
// Clock handles GET /clock.
//
// The page starts with the current time and then follows /clock/stream.
// ─────────────────────────────────────────────────────────────────────────────
func (c *Controller) Clock(w http.ResponseWriter, r *http.Request) {
	c.render(w, http.StatusOK, page{
		Action:     ActionClock,
		Tick:       c.clock.Current(),
		StreamPath: ActionClock.Path() + clockStreamSub,
	})
}

// studentInput reads the four record fields of a submitted form. idField
// names the input holding the student id.
func studentInput(r *http.Request, idField string) types.StudentInput {
	return types.StudentInput{
		StudentID: r.PostFormValue(idField),
		Name:      r.PostFormValue("name"),
		Course:    r.PostFormValue("course"),
		Email:     r.PostFormValue("email"),
	}
}

// renderWithIDs fills in the current list of student ids before rendering.
func (c *Controller) renderWithIDs(w http.ResponseWriter, status int, p page) {
	students, err := c.storage.GetStudents()
	if err != nil {
		c.fail(w, p, err)
		return
	}

	p.StudentIDs = make([]string, 0, len(students))
	for _, s := range students {
		p.StudentIDs = append(p.StudentIDs, s.StudentID)
	}

	c.render(w, status, p)
}

// fail logs an unclassified fault and shows the generic failure message.
func (c *Controller) fail(w http.ResponseWriter, p page, err error) {
	slog.Error("request failed",
		slog.String("action", p.Action.String()),
		slog.String("error", err.Error()))

	p.Flash = &Flash{Kind: flashError, Message: MsgFailure}
	c.render(w, http.StatusInternalServerError, p)
}

func (c *Controller) render(w http.ResponseWriter, status int, p page) {
	p.Menu = Actions

	var buf bytes.Buffer
	if err := c.pages[p.Action].ExecuteTemplate(&buf, "layout", p); err != nil {
		slog.Error("render failed",
			slog.String("action", p.Action.String()),
			slog.String("error", err.Error()))
		http.Error(w, MsgFailure, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
