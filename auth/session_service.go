package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// Navigator moves the user to the login destination. It is called on every
// logout, including the ones forced by a failed refresh.
type Navigator func(ctx context.Context)

// SessionService runs the session actions: login, register, logout and token
// refresh. It owns no state of its own beyond the refresh flight; the session
// lives in session.State.
type SessionService struct {
	state         *session.State
	api           AuthAPI
	navigate      Navigator
	profileClaims bool
	logger        zerolog.Logger
	metrics       *Metrics
	flight        singleflight.Group
}

// SessionServiceOption defines a function type to modify the SessionService instance.
type SessionServiceOption func(*SessionService)

// WithNavigator sets the function used to return to the login destination
func WithNavigator(navigate Navigator) SessionServiceOption {
	return func(s *SessionService) {
		s.navigate = navigate
	}
}

// WithProfileClaims controls whether login decodes the access token claims
// into the session user. Enabled by default.
func WithProfileClaims(enabled bool) SessionServiceOption {
	return func(s *SessionService) {
		s.profileClaims = enabled
	}
}

func WithLogger(logger zerolog.Logger) SessionServiceOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

func WithMetrics(metrics *Metrics) SessionServiceOption {
	return func(s *SessionService) {
		s.metrics = metrics
	}
}

// NewSessionService initializes a SessionService over the shared session state.
func NewSessionService(state *session.State, api AuthAPI, options ...SessionServiceOption) (*SessionService, error) {
	if state == nil {
		return nil, errors.New("[NewSessionService] state is required")
	}
	if api == nil {
		return nil, errors.New("[NewSessionService] auth api is required")
	}

	s := &SessionService{
		state:         state,
		api:           api,
		profileClaims: true,
		logger:        log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login exchanges credentials for a token pair. On failure the session is
// left untouched.
func (s *SessionService) Login(ctx context.Context, credentials authapi.Credentials) error {
	result, err := s.api.Login(ctx, credentials)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", credentials.Email).Msg("login failed")
		return errors.Wrap(err, "[Login] login request failed")
	}
	if err := s.state.SetTokens(result.Issued()); err != nil {
		return errors.Wrap(err, "[Login] failed to store tokens")
	}

	if s.profileClaims {
		if profile, ok := profileFromToken(result.AccessToken); ok {
			if err := s.state.SetUser(profile); err != nil {
				return errors.Wrap(err, "[Login] failed to store user profile")
			}
		}
	}
	s.logger.Info().Str("email", credentials.Email).Msg("logged in")
	return nil
}

// Register creates an account. The session is not changed, the caller logs
// in separately.
func (s *SessionService) Register(ctx context.Context, input authapi.RegisterInput) (authapi.Profile, error) {
	profile, err := s.api.Register(ctx, input)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", input.Email).Msg("registration failed")
		return nil, errors.Wrap(err, "[Register] registration request failed")
	}
	return profile, nil
}

// Logout never fails: the server call is best effort, the local session is
// always cleared and the user is always sent to the login destination.
func (s *SessionService) Logout(ctx context.Context) {
	if refreshToken := s.state.RefreshToken(); refreshToken != "" {
		if err := s.api.Logout(ctx, refreshToken); err != nil {
			s.logger.Warn().Err(err).Msg("server logout failed, clearing session locally")
		}
	}
	if err := s.state.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear persisted session")
	}
	if s.navigate != nil {
		s.navigate(ctx)
	}
}

// RefreshAccessToken obtains a new access token with the stored refresh
// token. Concurrent callers share one server call. A caller whose context
// ends stops waiting but the shared refresh carries on for the others.
func (s *SessionService) RefreshAccessToken(ctx context.Context) error {
	if s.state.RefreshToken() == "" {
		s.metrics.observe(refreshMissing)
		s.logger.Warn().Msg("no refresh token available, logging out")
		s.Logout(ctx)
		return apiclient.ErrCredentialMissing
	}

	ch := s.flight.DoChan(refreshFlightKey, func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SessionService) refresh(ctx context.Context) error {
	refreshToken := s.state.RefreshToken()
	if refreshToken == "" {
		return apiclient.ErrCredentialMissing
	}

	result, err := s.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		s.metrics.observe(refreshFailed)
		s.logger.Error().Err(err).Msg("failed to refresh access token, logging out")
		s.Logout(ctx)
		return errors.Wrap(err, "[RefreshAccessToken] refresh request failed")
	}
	if err := s.state.SetAccessToken(result.AccessToken, result.ExpiresIn); err != nil {
		s.metrics.observe(refreshFailed)
		return errors.Wrap(err, "[RefreshAccessToken] failed to store access token")
	}
	s.metrics.observe(refreshSucceeded)
	s.logger.Debug().Int("expires_in", result.ExpiresIn).Msg("access token refreshed")
	return nil
}

// registeredClaims are token bookkeeping, not profile data.
var registeredClaims = []string{"exp", "iat", "nbf", "iss", "aud", "jti"}

// profileFromToken reads the claims of a JWT access token without verifying
// the signature. Opaque tokens yield no profile.
func profileFromToken(accessToken string) (map[string]any, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, false
	}
	for _, name := range registeredClaims {
		delete(claims, name)
	}
	if len(claims) == 0 {
		return nil, false
	}
	return claims, true
}
