// Package interceptor wraps outgoing API traffic: it attaches the session's
// bearer token and recovers once from an authentication failure by refreshing
// the token and resending the request.
package interceptor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/nodeapi"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const HeaderRequestID = "X-Request-ID"

// DefaultExemptPaths never carry the bearer header.
var DefaultExemptPaths = []string{
	authapi.PathLogin,
	authapi.PathRegister,
	authapi.PathRefreshToken,
	nodeapi.PathUp,
	nodeapi.PathDown,
}

// Refresher is the session orchestration the transport calls back into.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) error
	Logout(ctx context.Context)
}

type class int

const (
	classCredentialed class = iota // bearer header, 401 triggers refresh
	classExempt                    // no header, 401 surfaced unchanged
	classRefresh                   // no header, 401 logs out
	classNoRecovery                // bearer header, 401 surfaced unchanged
)

// attempt is one send of a request through the pipeline.
type attempt struct {
	retried bool   // a retried attempt never enters the refresh branch again
	token   string // access token the attempt carried, empty if none
}

var _ http.RoundTripper = (*Transport)(nil)

type Transport struct {
	base        http.RoundTripper
	state       *session.State
	exempt      []string
	noRecovery  []string
	refreshPath string
	logger      zerolog.Logger
	metrics     *Metrics

	mu        sync.RWMutex
	refresher Refresher
}

type Option func(*Transport)

// WithBase sets the underlying transport (http.DefaultTransport otherwise)
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithExemptPaths replaces the list of paths that never carry credentials
func WithExemptPaths(paths ...string) Option {
	return func(t *Transport) {
		t.exempt = paths
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(t *Transport) {
		t.metrics = metrics
	}
}

func New(state *session.State, options ...Option) *Transport {
	t := &Transport{
		base:        http.DefaultTransport,
		state:       state,
		exempt:      DefaultExemptPaths,
		noRecovery:  []string{authapi.PathLogout},
		refreshPath: authapi.PathRefreshToken,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Bind attaches the orchestration. Until it is bound an authentication
// failure is returned to the caller unchanged.
func (t *Transport) Bind(refresher Refresher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresher = refresher
}

func (t *Transport) boundRefresher() Refresher {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refresher
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cls := t.classify(req.URL.Path)

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := t.logger.With().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()

	for a := (attempt{}); ; a = (attempt{retried: true}) {
		resp, err := t.send(req, getBody, cls, requestID, &a)
		if err != nil {
			t.metrics.observe(OutcomeNetworkError)
			logger.Debug().Err(err).Bool("retried", a.retried).Msg("no response received")
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.metrics.observe(successOutcome(resp.StatusCode, a.retried))
			return resp, nil
		}

		if a.retried {
			t.metrics.observe(OutcomeRetriedFailed)
			logger.Warn().Msg("retried request was rejected again")
			return resp, nil
		}
		if cls == classExempt || cls == classNoRecovery {
			t.metrics.observe(OutcomeFailedAuth)
			return resp, nil
		}

		refresher := t.boundRefresher()
		if refresher == nil {
			t.metrics.observe(OutcomeFailedAuth)
			return resp, nil
		}
		if cls == classRefresh || t.state.RefreshToken() == "" {
			logger.Warn().Msg("authentication failed and cannot be refreshed, logging out")
			refresher.Logout(ctx)
			t.metrics.observe(OutcomeLoggedOut)
			return resp, nil
		}

		drain(resp)
		// Another request may already have replaced the token this attempt used.
		if current := t.state.AccessToken(); current == "" || current == a.token {
			logger.Info().Msg("access token rejected, refreshing")
			if err := refresher.RefreshAccessToken(ctx); err != nil {
				t.metrics.observe(OutcomeRefreshFailed)
				logger.Error().Err(err).Msg("unable to refresh access token")
				return nil, &apiclient.RefreshError{Err: err}
			}
		}
	}
}

func (t *Transport) classify(path string) class {
	path = strings.TrimRight(path, "/")
	if strings.HasSuffix(path, t.refreshPath) {
		return classRefresh
	}
	for _, p := range t.exempt {
		if strings.HasSuffix(path, p) {
			return classExempt
		}
	}
	for _, p := range t.noRecovery {
		if strings.HasSuffix(path, p) {
			return classNoRecovery
		}
	}
	return classCredentialed
}

func (t *Transport) send(orig *http.Request, getBody func() (io.ReadCloser, error), cls class, requestID string, a *attempt) (*http.Response, error) {
	req := orig.Clone(orig.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	req.Header.Set(HeaderRequestID, requestID)

	switch cls {
	case classExempt, classRefresh:
		req.Header.Del("Authorization")
	default:
		if tok, err := t.state.Token(); err == nil {
			tok.SetAuthHeader(req)
			a.token = tok.AccessToken
		}
	}
	return t.base.RoundTrip(req)
}

// replayableBody returns a function producing a fresh copy of the request body
// for every attempt, or nil when the request has no body.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}

func successOutcome(status int, retried bool) Outcome {
	ok := status < http.StatusBadRequest
	switch {
	case retried && ok:
		return OutcomeRetriedSucceeded
	case retried:
		return OutcomeRetriedFailed
	case ok:
		return OutcomeSucceeded
	}
	return OutcomeFailedOther
}
