package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AccessVerifier verifies access tokens. *auth.Codec satisfies it.
type AccessVerifier interface {
	Verify(token string, kind auth.TokenType) (*auth.TokenClaims, error)
}

// Authenticate admits requests carrying a valid access token in
// "Authorization: Bearer <token>" and stores its claims in the request
// context for auth.ClaimsFromContext. Anything else is a bare 401.
func Authenticate(v AccessVerifier, l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthorizationHeaderName)
			token, ok := strings.CutPrefix(header, common.BearerPrefix)
			if !ok || token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.Verify(token, auth.Access)
			if err != nil {
				l.Debug(r.Context(), "access token rejected", "reason", err.Error())
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// requestLogger logs one line per request after it completes.
func requestLogger(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			l.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
