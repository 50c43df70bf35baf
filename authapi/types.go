package authapi

import "github.com/jrsteele09/go-auth-session/session"

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// TokenResult is returned by login and refresh. Refresh responses carry no
// refresh token because the server does not rotate it.
type TokenResult struct {
	// AccessToken is the bearer credential for API calls
	AccessToken string `json:"access_token"`

	// RefreshToken is only present on login
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expires_in"`
}

// Issued converts the result into the session's issuance record.
func (t TokenResult) Issued() session.IssuedTokens {
	return session.IssuedTokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
}

// Profile is the created-profile payload returned by registration.
type Profile map[string]any

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
