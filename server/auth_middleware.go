package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/jrsteele09/storefront-relay/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the session.RequestContext read from cookies
	ContextKeySession ContextKey = "session"
)

// RequireSession rejects requests without an access token cookie before any
// backend call is made. The cookies are read afresh on every request.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rc := session.FromRequest(r)
			if !rc.Authenticated() {
				writeJSONError(w, http.StatusUnauthorized, errors.ErrUnauthenticated.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, rc)
			next(w, r.WithContext(ctx))
		}
	}
}

// requestSession returns the session stored by RequireSession, falling back
// to the cookies when the middleware was not applied
func requestSession(r *http.Request) session.RequestContext {
	if rc, ok := r.Context().Value(ContextKeySession).(session.RequestContext); ok {
		return rc
	}
	return session.FromRequest(r)
}
