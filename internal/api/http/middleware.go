package http

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/dkoryagin/shortlink/pkg/response"
)

// Authenticator is the identity provider collaborator: it yields the caller
// identity from the request, nil for anonymous callers, or an error when
// the presented credentials are invalid.
type Authenticator interface {
	Authenticate(r *http.Request) (*int64, error)
}

type ctxKey int

const callerIDKey ctxKey = iota

// identity resolves the caller identity once per request and stores it in
// the request context. Invalid credentials terminate the request with 401;
// absent credentials pass through as anonymous.
func identity(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authn.Authenticate(r)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			ctx := context.WithValue(r.Context(), callerIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// callerID returns the caller identity stored by the identity middleware,
// nil when the caller is anonymous.
func callerID(ctx context.Context) *int64 {
	userID, _ := ctx.Value(callerIDKey).(*int64)
	return userID
}
