// Package httpapi exposes the session-token endpoints over HTTP/JSON using a
// chi router.
package httpapi

import (
	"net/http"

	"github.com/advn1/rback/internal/logging"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns the HTTP handler:
//
//	POST /register  POST /login  POST /refresh  POST /logout
//	GET  /me        (access token required)
func NewRouter(users AuthService, verifier AccessVerifier, l logging.Logger) http.Handler {
	l = l.With("module", "http")
	h := &handlers{users: users, logger: l}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(l))
	r.Use(chimiddleware.Recoverer)

	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verifier, l))
		r.Get("/me", h.me)
	})

	return r
}
