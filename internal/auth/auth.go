package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Authenticator validates incoming requests and returns a ClientContext.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*ClientContext, error)
}

// ClientContext holds the authenticated caller's identity and restrictions.
type ClientContext struct {
	ClientID string
	// ReadOnly blocks every side-effecting tool for this caller.
	// A per-request flag may tighten this further, never loosen it.
	ReadOnly bool
}

// ErrUnauthenticated is returned when no valid credentials are found.
var ErrUnauthenticated = errors.New("unauthenticated")

// ExtractBearerToken extracts a tgk_ API key from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrUnauthenticated
	}
	token := header
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "tgk_") {
		return "", ErrUnauthenticated
	}
	return token, nil
}
