package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"openbook/internal/assignment"
	"openbook/internal/auth"
	"openbook/internal/book"
	"openbook/internal/favorite"
	"openbook/internal/httpx"
	"openbook/internal/ingest"
	"openbook/internal/user"
	"openbook/internal/web"
)

type handlers struct {
	auth        *auth.HTTPHandler
	users       *user.HTTPHandler
	books       *book.HTTPHandler
	favorites   *favorite.HTTPHandler
	assignments *assignment.HTTPHandler
	sync        *ingest.HTTPHandler
}

type routerConfig struct {
	JWTSecret    string
	Blacklist    httpx.Blacklist
	CORSOrigins  []string
	HSTS         bool
	MaxBodyBytes int64
	RateLimiter  *httpx.RateLimitMiddleware
	FrontendDir  string
	Ready        func(ctx context.Context) error
}

func newRouter(h handlers, rc routerConfig, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.RequestIDMiddleware(log))
	r.Use(httpx.RecoveryMiddleware(log))
	r.Use(httpx.AccessLogMiddleware(log))
	r.Use(httpx.SecurityHeadersMiddleware(rc.HSTS))
	r.Use(httpx.CORSMiddleware(rc.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONSuccess(w, r, map[string]string{"status": "ok"}, nil)
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if rc.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := rc.Ready(ctx); err != nil {
				httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "database not ready", nil)
				return
			}
		}
		httpx.JSONSuccess(w, r, map[string]string{"status": "ready"}, nil)
	})

	authenticated := httpx.AuthMiddleware(rc.JWTSecret, rc.Blacklist)

	r.Route("/api", func(r chi.Router) {
		r.Use(httpx.RequestSizeLimitMiddleware(rc.MaxBodyBytes))
		if rc.RateLimiter != nil {
			r.Use(rc.RateLimiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.auth.Register)
			r.Post("/login", h.auth.Login)
			r.Post("/check-email", h.auth.CheckEmail)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/logout", h.auth.Logout)
				r.Get("/verify-token", h.auth.VerifyToken)
				r.Get("/profile", h.auth.Profile)
			})
		})

		r.Get("/institutions", h.users.ListInstitutions)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.books.List)
			r.Get("/genres", h.books.ListGenres)
			r.Get("/{id}", h.books.GetByID)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/favorites", h.favorites.List)
			r.Post("/favorites", h.favorites.Add)
			r.Delete("/favorites/{bookID}", h.favorites.Remove)

			r.Group(func(r chi.Router) {
				r.Use(httpx.RequireRole(user.RoleNameStudent))
				r.Get("/dashboard", h.assignments.Dashboard)
				r.Get("/assignments", h.assignments.ListForStudent)
				r.Put("/assignments/{id}", h.assignments.UpdateProgress)
			})
		})

		r.Route("/teacher", func(r chi.Router) {
			r.Use(authenticated)
			r.Use(httpx.RequireRole(user.RoleNameTeacher))
			r.Get("/students", h.users.ListStudents)
			r.Get("/assignments", h.assignments.ListForTeacher)
			r.Post("/assignments", h.assignments.Create)
			r.Delete("/assignments/{id}", h.assignments.Delete)
		})

		r.Post("/internal/jobs/sync", h.sync.Trigger)
		r.Get("/internal/jobs/sync", h.sync.Status)
	})

	r.MethodNotAllowed(httpx.MethodNotAllowed)
	if rc.FrontendDir != "" {
		web.Mount(r, rc.FrontendDir)
	} else {
		r.NotFound(httpx.NotFound)
	}
	return r
}
