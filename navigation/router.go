package navigation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxRedirects = 10
	maxHistory   = 32
)

var (
	ErrRedirectLoop      = errors.New("too many redirects")
	ErrNavigationAborted = errors.New("navigation aborted")
	ErrUnknownRoute      = errors.New("unknown route")
)

// Router resolves locations against the route table and runs the guard
// before every transition.
type Router struct {
	guard   *Guard
	records []record
	logger  zerolog.Logger

	mu      sync.RWMutex
	history []Destination
}

type RouterOption func(*Router)

// WithRoutes replaces DefaultRoutes
func WithRoutes(routes ...Route) RouterOption {
	return func(r *Router) {
		r.records = flatten(routes, "/", nil)
	}
}

func WithRouterLogger(logger zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router. A nil guard allows every transition.
func NewRouter(guard *Guard, options ...RouterOption) *Router {
	r := &Router{
		guard:   guard,
		records: flatten(DefaultRoutes(), "/", nil),
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ParseLocation splits a raw path such as "/nodes?page=2" into a Location.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrapf(err, "[ParseLocation] invalid path %q", raw)
	}
	if u.IsAbs() || u.Host != "" {
		return Location{}, errors.Errorf("[ParseLocation] %q is not a local path", raw)
	}
	loc := Location{Path: cleanPath(u.Path)}
	if q := u.Query(); len(q) > 0 {
		loc.Query = q
	}
	return loc, nil
}

// Resolve matches loc against the route table and follows record redirects.
func (r *Router) Resolve(loc Location) (Destination, error) {
	for hops := 0; hops <= maxRedirects; hops++ {
		rec, err := r.match(loc)
		if err != nil {
			return Destination{}, err
		}
		if rec.route.Redirect == "" {
			path := cleanPath(loc.Path)
			if loc.Name != "" {
				path = rec.path
			}
			return Destination{
				Location: Location{Name: rec.route.Name, Path: path, Query: loc.Query},
				Matched:  rec.matched,
			}, nil
		}

		next, err := ParseLocation(rec.route.Redirect)
		if err != nil {
			return Destination{}, err
		}
		if len(next.Query) == 0 {
			next.Query = loc.Query
		}
		loc = next
	}
	return Destination{}, ErrRedirectLoop
}

// Push navigates to a raw path and records it as a new history entry.
func (r *Router) Push(ctx context.Context, path string) (Destination, error) {
	loc, err := ParseLocation(path)
	if err != nil {
		return Destination{}, err
	}
	return r.navigate(ctx, loc, false)
}

// Replace navigates to loc, replacing the current history entry.
func (r *Router) Replace(ctx context.Context, loc Location) (Destination, error) {
	return r.navigate(ctx, loc, true)
}

// Current is the last destination navigation reached.
func (r *Router) Current() (Destination, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.history) == 0 {
		return Destination{}, false
	}
	return r.history[len(r.history)-1], true
}

// History returns the visited destinations, oldest first.
func (r *Router) History() []Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Destination(nil), r.history...)
}

// PostLoginTarget is where to go after a successful login: the destination
// preserved in the login redirect query when it is a local path, otherwise
// the node list.
func (r *Router) PostLoginTarget() string {
	if cur, ok := r.Current(); ok {
		if target := cur.Query.Get(QueryRedirect); isLocalPath(target) {
			return target
		}
	}
	if rec, err := r.match(Location{Name: RouteNodeList}); err == nil {
		return rec.path
	}
	return "/"
}

func (r *Router) navigate(ctx context.Context, loc Location, replace bool) (Destination, error) {
	for hops := 0; hops <= maxRedirects; hops++ {
		dest, err := r.Resolve(loc)
		if err != nil {
			return Destination{}, err
		}

		decision := Decision{Action: Allow}
		if r.guard != nil {
			decision = r.guard.Check(ctx, dest)
		}

		switch decision.Action {
		case Allow:
			r.commit(dest, replace)
			r.logger.Debug().Str("route", dest.Name).Str("path", dest.FullPath()).Msg("navigated")
			return dest, nil
		case Redirect:
			r.logger.Debug().
				Str("from", dest.FullPath()).
				Str("to", decision.Target.Name+decision.Target.Path).
				Msg("navigation redirected")
			loc = decision.Target
		default:
			return Destination{}, fmt.Errorf("%w: %w", ErrNavigationAborted, decision.Err)
		}
	}
	return Destination{}, ErrRedirectLoop
}

func (r *Router) commit(dest Destination, replace bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if replace && len(r.history) > 0 {
		r.history[len(r.history)-1] = dest
		return
	}
	r.history = append(r.history, dest)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
}

func (r *Router) match(loc Location) (record, error) {
	if loc.Name != "" {
		for _, rec := range r.records {
			if rec.route.Name == loc.Name {
				return rec, nil
			}
		}
		return record{}, errors.Wrapf(ErrUnknownRoute, "[Resolve] no route named %q", loc.Name)
	}

	path := cleanPath(loc.Path)
	catchAll := -1
	for i, rec := range r.records {
		if rec.path == CatchAll {
			if catchAll < 0 {
				catchAll = i
			}
			continue
		}
		if rec.path == path {
			return rec, nil
		}
	}
	if catchAll >= 0 {
		return r.records[catchAll], nil
	}
	return record{}, errors.Wrapf(ErrUnknownRoute, "[Resolve] no route for %q", path)
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}
