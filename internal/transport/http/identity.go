package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/khangpt2k6/bullroom/internal/app"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

type callerKey struct{}

// Identity reads the caller from trusted headers set by the fronting
// gateway. Requests without a user id pass through anonymously.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := app.Caller{
			UserID: strings.TrimSpace(r.Header.Get(headerUserID)),
			Admin:  strings.EqualFold(strings.TrimSpace(r.Header.Get(headerUserRole)), roleAdmin),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) app.Caller {
	c, _ := ctx.Value(callerKey{}).(app.Caller)
	return c
}

// RequireUser rejects requests without a user id.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callerFrom(r.Context()).UserID == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, headerUserID+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := callerFrom(r.Context())
		if c.UserID == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, headerUserID+" header is required")
			return
		}
		if !c.Admin {
			writeError(w, http.StatusForbidden, codeForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
