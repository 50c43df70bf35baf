package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/auth/apifake"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/storefake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testFixture holds all test dependencies
type testFixture struct {
	store     *storefake.FakeStore
	state     *session.State
	api       *apifake.FakeAuthAPI
	metrics   *auth.Metrics
	navigated atomic.Int32
	service   *auth.SessionService
}

func setupTestFixture(t *testing.T, options ...auth.SessionServiceOption) *testFixture {
	t.Helper()

	f := &testFixture{
		store:   storefake.NewFakeStore(),
		api:     apifake.NewFakeAuthAPI(),
		metrics: auth.NewMetrics(prometheus.NewRegistry()),
	}
	state, err := session.NewState(f.store, session.WithNowFunc(func() time.Time { return testNow }))
	require.NoError(t, err)
	f.state = state

	options = append([]auth.SessionServiceOption{
		auth.WithMetrics(f.metrics),
		auth.WithNavigator(func(ctx context.Context) { f.navigated.Add(1) }),
	}, options...)
	f.service, err = auth.NewSessionService(state, f.api, options...)
	require.NoError(t, err)
	return f
}

func (f *testFixture) loggedIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.state.SetTokens(session.IssuedTokens{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 3600}))
}

func (f *testFixture) refreshes(result string) float64 {
	return testutil.ToFloat64(f.metrics.Refreshes().WithLabelValues(result))
}

func TestNewSessionServiceRequiresDependencies(t *testing.T) {
	state, err := session.NewState(storefake.NewFakeStore())
	require.NoError(t, err)

	_, err = auth.NewSessionService(nil, apifake.NewFakeAuthAPI())
	require.Error(t, err)
	_, err = auth.NewSessionService(state, nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.service.Login(context.Background(), authapi.Credentials{Email: "u@x.com", Password: "p"}))

	snap := f.state.Snapshot()
	require.True(t, snap.IsAuthenticated())
	require.Equal(t, "a1", snap.AccessToken)
	require.Equal(t, "r1", snap.RefreshToken)
	require.Equal(t, 3600, snap.ExpiresIn)
	require.Equal(t, testNow.UnixMilli()+3_540_000, snap.TokenExpiryTime)
	require.Empty(t, snap.User, "opaque tokens carry no profile")
	require.Zero(t, f.navigated.Load())
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	f := setupTestFixture(t)
	rejected := &apiclient.ResponseError{Path: authapi.PathLogin, StatusCode: 401}
	f.api.LoginFunc = func(ctx context.Context, credentials authapi.Credentials) (*authapi.TokenResult, error) {
		return nil, rejected
	}

	err := f.service.Login(context.Background(), authapi.Credentials{Email: "u@x.com", Password: "bad"})
	require.ErrorIs(t, err, apiclient.ErrAuthenticationRejected)
	require.False(t, f.state.IsAuthenticated())
	require.Zero(t, f.store.Saves())
	require.Zero(t, f.api.Calls(apifake.MethodRefreshToken))
}

func TestLoginDecodesProfileClaims(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          "42",
		"email":        "u@x.com",
		"display_name": "U",
		"exp":          testNow.Add(time.Hour).Unix(),
		"iat":          testNow.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	t.Run("enabled", func(t *testing.T) {
		f := setupTestFixture(t)
		f.api.LoginFunc = func(ctx context.Context, credentials authapi.Credentials) (*authapi.TokenResult, error) {
			return &authapi.TokenResult{AccessToken: signed, RefreshToken: "r1", ExpiresIn: 3600}, nil
		}

		require.NoError(t, f.service.Login(context.Background(), authapi.Credentials{Email: "u@x.com", Password: "p"}))
		require.Equal(t, map[string]any{"sub": "42", "email": "u@x.com", "display_name": "U"}, f.state.User())
	})

	t.Run("disabled", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithProfileClaims(false))
		f.api.LoginFunc = func(ctx context.Context, credentials authapi.Credentials) (*authapi.TokenResult, error) {
			return &authapi.TokenResult{AccessToken: signed, RefreshToken: "r1", ExpiresIn: 3600}, nil
		}

		require.NoError(t, f.service.Login(context.Background(), authapi.Credentials{Email: "u@x.com", Password: "p"}))
		require.Empty(t, f.state.User())
		require.Equal(t, signed, f.state.AccessToken())
	})
}

func TestLoginStoreFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SaveErr = errors.New("disk full")

	err := f.service.Login(context.Background(), authapi.Credentials{Email: "u@x.com", Password: "p"})
	require.ErrorIs(t, err, f.store.SaveErr)
	require.False(t, f.state.IsAuthenticated())
}

func TestRegisterDoesNotTouchSession(t *testing.T) {
	f := setupTestFixture(t)

	profile, err := f.service.Register(context.Background(), authapi.RegisterInput{DisplayName: "U", Email: "u@x.com", Password: "p"})
	require.NoError(t, err)
	require.Equal(t, "u@x.com", profile["email"])
	require.False(t, f.state.IsAuthenticated())
	require.Zero(t, f.store.Saves())
}

func TestRegisterFailurePropagates(t *testing.T) {
	f := setupTestFixture(t)
	conflict := &apiclient.ResponseError{Path: authapi.PathRegister, StatusCode: 409}
	f.api.RegisterFunc = func(ctx context.Context, input authapi.RegisterInput) (authapi.Profile, error) {
		return nil, conflict
	}

	_, err := f.service.Register(context.Background(), authapi.RegisterInput{Email: "u@x.com"})
	require.ErrorIs(t, err, apiclient.ErrServerError)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)

	f.service.Logout(context.Background())

	require.Equal(t, []string{"r1"}, f.api.LoggedOut())
	require.False(t, f.state.IsAuthenticated())
	require.Empty(t, f.store.Record())
	require.Equal(t, int32(1), f.navigated.Load())
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)
	f.api.LogoutFunc = func(ctx context.Context, refreshToken string) error {
		return &apiclient.NetworkError{Path: authapi.PathLogout, Err: errors.New("connection refused")}
	}

	f.service.Logout(context.Background())

	require.False(t, f.state.IsAuthenticated())
	require.Empty(t, f.store.Record())
	require.Equal(t, int32(1), f.navigated.Load())
}

func TestLogoutWithoutRefreshTokenSkipsServer(t *testing.T) {
	f := setupTestFixture(t)

	f.service.Logout(context.Background())

	require.Zero(t, f.api.Calls(apifake.MethodLogout))
	require.Equal(t, 1, f.store.Clears())
	require.Equal(t, int32(1), f.navigated.Load())
}

func TestLogoutClearsMemoryWhenStoreFails(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)
	f.store.ClearErr = errors.New("read-only")

	f.service.Logout(context.Background())

	require.False(t, f.state.IsAuthenticated())
	require.Equal(t, int32(1), f.navigated.Load())
}

func TestRefreshAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)
	var sent string
	f.api.RefreshFunc = func(ctx context.Context, refreshToken string) (*authapi.TokenResult, error) {
		sent = refreshToken
		return &authapi.TokenResult{AccessToken: "a2", ExpiresIn: 900}, nil
	}

	require.NoError(t, f.service.RefreshAccessToken(context.Background()))
	require.Equal(t, "r1", sent)

	snap := f.state.Snapshot()
	require.Equal(t, "a2", snap.AccessToken)
	require.Equal(t, "r1", snap.RefreshToken, "refresh token is not rotated")
	require.Equal(t, 900, snap.ExpiresIn)
	require.Equal(t, testNow.UnixMilli()+840_000, snap.TokenExpiryTime)
	require.Equal(t, 1.0, f.refreshes("succeeded"))
	require.Zero(t, f.navigated.Load())
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, apiclient.ErrCredentialMissing)
	require.Zero(t, f.api.Calls(apifake.MethodRefreshToken))
	require.Equal(t, int32(1), f.navigated.Load())
	require.Equal(t, 1.0, f.refreshes("missing_credential"))
}

func TestRefreshFailureLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)
	rejected := &apiclient.ResponseError{Path: authapi.PathRefreshToken, StatusCode: 401}
	f.api.RefreshFunc = func(ctx context.Context, refreshToken string) (*authapi.TokenResult, error) {
		return nil, rejected
	}

	err := f.service.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, apiclient.ErrAuthenticationRejected)
	require.ErrorIs(t, err, rejected)

	require.False(t, f.state.IsAuthenticated())
	require.Empty(t, f.store.Record())
	require.Equal(t, []string{"r1"}, f.api.LoggedOut())
	require.Equal(t, int32(1), f.navigated.Load())
	require.Equal(t, 1.0, f.refreshes("failed"))
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.api.RefreshFunc = func(ctx context.Context, refreshToken string) (*authapi.TokenResult, error) {
		once.Do(func() { close(started) })
		<-release
		return &authapi.TokenResult{AccessToken: "a2", ExpiresIn: 3600}, nil
	}

	const callers = 8
	errs := make(chan error, callers)
	go func() { errs <- f.service.RefreshAccessToken(context.Background()) }()
	<-started

	for i := 1; i < callers; i++ {
		go func() { errs <- f.service.RefreshAccessToken(context.Background()) }()
	}
	// the late callers must reach the flight before it completes
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		require.NoError(t, <-errs)
	}
	require.Equal(t, 1, f.api.Calls(apifake.MethodRefreshToken))
	require.Equal(t, "a2", f.state.AccessToken())
	require.Equal(t, 1.0, f.refreshes("succeeded"))
}

func TestRefreshWaiterCancellationDoesNotCancelFlight(t *testing.T) {
	f := setupTestFixture(t)
	f.loggedIn(t)

	release := make(chan struct{})
	done := make(chan struct{})
	f.api.RefreshFunc = func(ctx context.Context, refreshToken string) (*authapi.TokenResult, error) {
		defer close(done)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &authapi.TokenResult{AccessToken: "a2", ExpiresIn: 3600}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- f.service.RefreshAccessToken(ctx) }()

	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	close(release)
	<-done
	require.Eventually(t, func() bool { return f.state.AccessToken() == "a2" }, time.Second, 5*time.Millisecond)
	require.Zero(t, f.navigated.Load())
}
