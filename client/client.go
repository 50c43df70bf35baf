// Package client assembles the session manager: state, interceptor, API
// clients, session actions and router, wired from configuration.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/interceptor"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/navigation"
	"github.com/jrsteele09/go-auth-session/nodeapi"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Client struct {
	state    *session.State
	sessions *auth.SessionService
	authAPI  *authapi.Client
	nodes    *nodeapi.Client
	router   *navigation.Router
	registry *prometheus.Registry
}

type options struct {
	logger   zerolog.Logger
	base     http.RoundTripper
	nowFunc  func() time.Time
	registry *prometheus.Registry
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBaseTransport sets the transport under the interceptor
func WithBaseTransport(base http.RoundTripper) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithNowFunc sets the session clock (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// New hydrates the session from store and wires every component to it.
func New(cfg config.ClientConfig, store session.Store, opts ...Option) (*Client, error) {
	o := options{
		logger:   log.Logger,
		base:     http.DefaultTransport,
		nowFunc:  time.Now,
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	state, err := session.NewState(store,
		session.WithSkew(cfg.GetExpirySkew()),
		session.WithNowFunc(o.nowFunc),
		session.WithLogger(o.logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] failed to restore session")
	}

	transport := interceptor.New(state,
		interceptor.WithBase(o.base),
		interceptor.WithLogger(o.logger),
		interceptor.WithMetrics(interceptor.NewMetrics(o.registry)),
	)
	httpClient := &http.Client{Transport: transport, Timeout: cfg.GetRequestTimeout()}
	api := apiclient.New(cfg.GetAPIBaseURL(), httpClient)

	c := &Client{
		state:    state,
		authAPI:  authapi.New(api),
		nodes:    nodeapi.New(api),
		registry: o.registry,
	}

	c.sessions, err = auth.NewSessionService(state, c.authAPI,
		auth.WithNavigator(c.toLogin(o.logger)),
		auth.WithProfileClaims(cfg.GetDecodeProfileClaims()),
		auth.WithLogger(o.logger),
		auth.WithMetrics(auth.NewMetrics(o.registry)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] failed to create session service")
	}

	guard := navigation.NewGuard(state, c.sessions, navigation.WithGuardLogger(o.logger))
	c.router = navigation.NewRouter(guard, navigation.WithRouterLogger(o.logger))
	transport.Bind(c.sessions)
	return c, nil
}

// toLogin is the navigator handed to the session actions.
func (c *Client) toLogin(logger zerolog.Logger) auth.Navigator {
	return func(ctx context.Context) {
		if _, err := c.router.Replace(ctx, navigation.LoginLocation("")); err != nil {
			logger.Warn().Err(err).Msg("unable to navigate to login")
		}
	}
}

func (c *Client) State() *session.State {
	return c.state
}

func (c *Client) Sessions() *auth.SessionService {
	return c.sessions
}

func (c *Client) Nodes() *nodeapi.Client {
	return c.nodes
}

func (c *Client) Router() *navigation.Router {
	return c.router
}

func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Login signs in and moves to the destination preserved by the last login
// redirect, or the node list.
func (c *Client) Login(ctx context.Context, credentials authapi.Credentials) (navigation.Destination, error) {
	if err := c.sessions.Login(ctx, credentials); err != nil {
		return navigation.Destination{}, err
	}
	return c.router.Push(ctx, c.router.PostLoginTarget())
}

func (c *Client) Register(ctx context.Context, input authapi.RegisterInput) (authapi.Profile, error) {
	return c.sessions.Register(ctx, input)
}

func (c *Client) Logout(ctx context.Context) {
	c.sessions.Logout(ctx)
}

// Open navigates to path through the guard.
func (c *Client) Open(ctx context.Context, path string) (navigation.Destination, error) {
	return c.router.Push(ctx, path)
}

func (c *Client) ListNodes(ctx context.Context) ([]nodeapi.Node, error) {
	return c.nodes.List(ctx)
}
