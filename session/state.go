package session

import (
	"maps"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned by Token when no access token is held.
var ErrNotAuthenticated = errors.New("session is not authenticated")

var _ oauth2.TokenSource = (*State)(nil)

// State is the in-memory source of truth for the current session. Every
// mutation is written to the Store before it becomes visible, so memory and
// storage never disagree after a successful call.
type State struct {
	mu      sync.RWMutex
	current Session
	store   Store
	skew    time.Duration
	nowFunc func() time.Time
	logger  zerolog.Logger
}

// StateOption defines a function type to modify the State instance.
type StateOption func(*State)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) StateOption {
	return func(s *State) {
		s.nowFunc = now
	}
}

// WithSkew overrides the safety buffer applied to the token lifetime
func WithSkew(skew time.Duration) StateOption {
	return func(s *State) {
		s.skew = skew
	}
}

func WithLogger(logger zerolog.Logger) StateOption {
	return func(s *State) {
		s.logger = logger
	}
}

// NewState hydrates a State from store. An empty store yields an empty session.
func NewState(store Store, options ...StateOption) (*State, error) {
	if store == nil {
		return nil, errors.New("[NewState] store is required")
	}
	s := &State{
		store:   store,
		skew:    DefaultSkew,
		nowFunc: time.Now,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	rec, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "[NewState] failed to load session")
	}
	current, invalid := fromRecord(rec)
	for _, key := range invalid {
		s.logger.Warn().Str("key", key).Msg("ignoring unreadable persisted session value")
	}
	s.current = current
	return s, nil
}

func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsAuthenticated()
}

// IsTokenExpiringSoon reports true when the expiry is unknown or has been reached.
func (s *State) IsTokenExpiringSoon() bool {
	s.mu.RLock()
	expiry := s.current.TokenExpiryTime
	s.mu.RUnlock()
	if expiry == 0 {
		return true
	}
	return s.nowFunc().UnixMilli() >= expiry
}

func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RefreshToken
}

func (s *State) User() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.current.User)
}

// Snapshot returns a copy of the current session.
func (s *State) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// SetTokens stores a freshly issued token pair and recomputes the expiry.
func (s *State) SetTokens(issued IssuedTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	next.AccessToken = issued.AccessToken
	next.RefreshToken = issued.RefreshToken
	next.ExpiresIn = issued.ExpiresIn
	next.TokenExpiryTime = expiryTime(s.nowFunc(), issued.ExpiresIn, s.skew)
	return s.commit(next)
}

// SetAccessToken replaces the access token after a refresh. The refresh token
// and user profile are kept.
func (s *State) SetAccessToken(accessToken string, expiresIn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	next.AccessToken = accessToken
	next.ExpiresIn = expiresIn
	next.TokenExpiryTime = expiryTime(s.nowFunc(), expiresIn, s.skew)
	return s.commit(next)
}

func (s *State) SetUser(profile map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	next.User = maps.Clone(profile)
	return s.commit(next)
}

// Clear drops every field. The in-memory session is emptied even when the
// store fails, the store error is still returned.
func (s *State) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	if err := s.store.Clear(); err != nil {
		return errors.Wrap(err, "[Clear] failed to clear persisted session")
	}
	return nil
}

// Token implements oauth2.TokenSource over the current access token.
func (s *State) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  s.current.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.current.RefreshToken,
		Expiry:       s.current.Expiry(),
	}, nil
}

// commit must be called with mu held.
func (s *State) commit(next Session) error {
	rec, err := next.record()
	if err != nil {
		return errors.Wrap(err, "[commit] failed to encode session")
	}
	if err := s.store.Save(rec); err != nil {
		return errors.Wrap(err, "[commit] failed to persist session")
	}
	s.current = next
	return nil
}
