// Package authapi is the client for the four authentication endpoints.
package authapi

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/pkg/errors"
)

const (
	PathLogin        = "/auth/login"
	PathRegister     = "/auth/register"
	PathLogout       = "/auth/logout"
	PathRefreshToken = "/auth/refreshToken"
)

// Client talks to the auth endpoints through the shared API client, so its
// requests pass through the same interceptor as every other call.
type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Login(ctx context.Context, credentials Credentials) (*TokenResult, error) {
	var result TokenResult
	if err := c.api.DoJSON(ctx, http.MethodPost, PathLogin, credentials, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("[Login] response has no access token")
	}
	return &result, nil
}

func (c *Client) Register(ctx context.Context, input RegisterInput) (Profile, error) {
	profile := Profile{}
	if err := c.api.DoJSON(ctx, http.MethodPost, PathRegister, input, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.api.DoJSON(ctx, http.MethodPost, PathLogout, refreshRequest{RefreshToken: refreshToken}, nil)
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResult, error) {
	var result TokenResult
	if err := c.api.DoJSON(ctx, http.MethodPost, PathRefreshToken, refreshRequest{RefreshToken: refreshToken}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("[RefreshToken] response has no access token")
	}
	return &result, nil
}
