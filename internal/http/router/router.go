// Package router assembles the HTTP surface: the HTML form pages, the
// JSON API and the middleware shared by both.
//
// Route table:
//
//	GET         /                          dashboard
//	GET, POST   /students/new              add student form
//	GET         /students                  view / search students
//	GET, POST   /students/edit             update student form
//	GET, POST   /students/delete           delete student form
//	GET, POST   /qr                        QR code generator
//	GET         /clock, /clock/stream      live clock page and its WebSocket
//	POST        /api/students              create
//	GET         /api/students[?q=]         list / search
//	GET         /api/students/{studentID}  get one
//	PUT         /api/students/{studentID}  update
//	DELETE      /api/students/{studentID}  delete
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/web"
)

// New returns the application's root handler.
func New(storage storage.Storage, pages *web.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	pages.Routes(r)

	r.Route("/api/students", func(r chi.Router) {
		r.Post("/", student.New(storage))
		r.Get("/", student.GetList(storage))
		r.Get("/{"+student.URLParam+"}", student.GetByStudentID(storage))
		r.Put("/{"+student.URLParam+"}", student.Update(storage))
		r.Delete("/{"+student.URLParam+"}", student.Delete(storage))
	})

	return r
}

// requestLogger writes one structured line per request once it finishes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
