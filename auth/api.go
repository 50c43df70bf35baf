package auth

import (
	"context"

	"github.com/jrsteele09/go-auth-session/authapi"
)

var _ AuthAPI = (*authapi.Client)(nil)

// AuthAPI is the server side of the session. *authapi.Client satisfies it.
type AuthAPI interface {
	Login(ctx context.Context, credentials authapi.Credentials) (*authapi.TokenResult, error)
	Register(ctx context.Context, input authapi.RegisterInput) (authapi.Profile, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*authapi.TokenResult, error)
}
