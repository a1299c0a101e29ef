package auth

import (
	"context"
)

// StaticAuthenticator is a development-only authenticator that accepts any
// tgk_ key.
type StaticAuthenticator struct{}

func NewStaticAuthenticator() *StaticAuthenticator {
	return &StaticAuthenticator{}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (*ClientContext, error) {
	if len(token) < 8 {
		return nil, ErrUnauthenticated
	}
	// Accept any tgk_ prefixed key with a static client ID
	return &ClientContext{
		ClientID: "static-" + token[:8],
	}, nil
}
