// Package navigation enforces authentication requirements when the user moves
// between destinations.
package navigation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// QueryRedirect carries the originally requested destination through login.
const QueryRedirect = "redirect"

// Session is the read side of the session the guard consults.
type Session interface {
	IsAuthenticated() bool
	IsTokenExpiringSoon() bool
}

type Refresher interface {
	RefreshAccessToken(ctx context.Context) error
}

type Action int

const (
	Allow Action = iota
	Redirect
	Abort
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// Decision is the outcome of one guard evaluation. Target is set for
// Redirect, Err for Abort.
type Decision struct {
	Action Action
	Target Location
	Err    error
}

type Guard struct {
	session   Session
	refresher Refresher
	logger    zerolog.Logger
}

type GuardOption func(*Guard)

func WithGuardLogger(logger zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

func NewGuard(session Session, refresher Refresher, options ...GuardOption) *Guard {
	g := &Guard{
		session:   session,
		refresher: refresher,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Check decides whether navigation to dest may proceed. A protected
// destination with a token about to expire is refreshed first; if that fails
// the navigation is aborted, the refresh has already logged the user out.
func (g *Guard) Check(ctx context.Context, dest Destination) Decision {
	requiresAuth := dest.RequiresAuth()

	if requiresAuth && g.session.IsAuthenticated() && g.session.IsTokenExpiringSoon() {
		if err := g.refresher.RefreshAccessToken(ctx); err != nil {
			g.logger.Warn().Err(err).Str("destination", dest.FullPath()).Msg("navigation aborted, token refresh failed")
			return Decision{Action: Abort, Err: err}
		}
	}

	authenticated := g.session.IsAuthenticated()
	switch {
	case requiresAuth && !authenticated:
		return Decision{Action: Redirect, Target: LoginLocation(dest.FullPath())}
	case (dest.Name == RouteLogin || dest.Name == RouteRegister) && authenticated:
		return Decision{Action: Redirect, Target: Location{Name: RouteNodeList}}
	}
	return Decision{Action: Allow}
}

// LoginLocation is the login destination preserving returnTo, if any.
func LoginLocation(returnTo string) Location {
	loc := Location{Name: RouteLogin}
	if returnTo != "" {
		loc.Query = map[string][]string{QueryRedirect: {returnTo}}
	}
	return loc
}
