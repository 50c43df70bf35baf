package navigation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-session/navigation"
	"github.com/stretchr/testify/require"
)

func newRouter(session *fakeSession) (*navigation.Router, *fakeRefresher) {
	refresher := &fakeRefresher{session: session}
	return navigation.NewRouter(navigation.NewGuard(session, refresher)), refresher
}

func TestResolve(t *testing.T) {
	router := navigation.NewRouter(nil)

	tests := []struct {
		in           navigation.Location
		name         string
		path         string
		requiresAuth bool
	}{
		{in: navigation.Location{Path: "/login"}, name: navigation.RouteLogin, path: "/login"},
		{in: navigation.Location{Path: "/register/"}, name: navigation.RouteRegister, path: "/register"},
		{in: navigation.Location{Path: "/"}, name: navigation.RouteNodeList, path: "/nodes", requiresAuth: true},
		{in: navigation.Location{Path: "/nodes"}, name: navigation.RouteNodeList, path: "/nodes", requiresAuth: true},
		{in: navigation.Location{Path: "/system/users"}, name: navigation.RouteUserManagement, path: "/system/users", requiresAuth: true},
		{in: navigation.Location{Name: navigation.RouteSystemSettings}, name: navigation.RouteSystemSettings, path: "/system/settings", requiresAuth: true},
		{in: navigation.Location{Path: "/no/such/page"}, name: navigation.RouteNotFound, path: "/no/such/page"},
	}
	for _, tt := range tests {
		t.Run(tt.in.Name+tt.in.Path, func(t *testing.T) {
			dest, err := router.Resolve(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.name, dest.Name)
			require.Equal(t, tt.path, dest.Path)
			require.Equal(t, tt.requiresAuth, dest.RequiresAuth())
		})
	}
}

func TestResolveUnknownName(t *testing.T) {
	_, err := navigation.NewRouter(nil).Resolve(navigation.Location{Name: "Nope"})
	require.ErrorIs(t, err, navigation.ErrUnknownRoute)
}

func TestResolveRedirectLoop(t *testing.T) {
	router := navigation.NewRouter(nil, navigation.WithRoutes(
		navigation.Route{Path: "/a", Redirect: "/b"},
		navigation.Route{Path: "/b", Redirect: "/a"},
	))
	_, err := router.Resolve(navigation.Location{Path: "/a"})
	require.ErrorIs(t, err, navigation.ErrRedirectLoop)
}

func TestPushAnonymousToProtectedGoesToLogin(t *testing.T) {
	router, _ := newRouter(&fakeSession{})

	dest, err := router.Push(context.Background(), "/system/users?page=2")
	require.NoError(t, err)
	require.Equal(t, navigation.RouteLogin, dest.Name)
	require.Equal(t, "/system/users?page=2", dest.Query.Get(navigation.QueryRedirect))

	cur, ok := router.Current()
	require.True(t, ok)
	require.Equal(t, navigation.RouteLogin, cur.Name)
	require.Equal(t, "/system/users?page=2", router.PostLoginTarget())
}

func TestPushRootWhenAuthenticated(t *testing.T) {
	router, _ := newRouter(&fakeSession{authenticated: true})

	dest, err := router.Push(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, navigation.RouteNodeList, dest.Name)
	require.Equal(t, "/nodes", dest.Path)
}

func TestPushLoginWhenAuthenticatedLandsOnNodes(t *testing.T) {
	router, _ := newRouter(&fakeSession{authenticated: true})

	dest, err := router.Push(context.Background(), "/login")
	require.NoError(t, err)
	require.Equal(t, navigation.RouteNodeList, dest.Name)
}

func TestPushRefreshesExpiringToken(t *testing.T) {
	session := &fakeSession{authenticated: true, expiringSoon: true}
	router, refresher := newRouter(session)

	dest, err := router.Push(context.Background(), "/nodes")
	require.NoError(t, err)
	require.Equal(t, navigation.RouteNodeList, dest.Name)
	require.Equal(t, 1, refresher.calls)
	require.False(t, session.expiringSoon)
}

func TestPushAbortedByFailedRefresh(t *testing.T) {
	session := &fakeSession{authenticated: true, expiringSoon: true}
	refresher := &fakeRefresher{session: session, err: errors.New("refresh rejected")}
	router := navigation.NewRouter(navigation.NewGuard(session, refresher))
	// the failed refresh logs out, which navigates to login on its own
	refresher.onFail = func(ctx context.Context) {
		_, err := router.Replace(ctx, navigation.LoginLocation(""))
		require.NoError(t, err)
	}

	_, err := router.Push(context.Background(), "/nodes")
	require.ErrorIs(t, err, navigation.ErrNavigationAborted)
	require.ErrorIs(t, err, refresher.err)

	cur, ok := router.Current()
	require.True(t, ok)
	require.Equal(t, navigation.RouteLogin, cur.Name)
	require.Len(t, router.History(), 1)
}

func TestReplaceOverwritesCurrentEntry(t *testing.T) {
	router, _ := newRouter(&fakeSession{authenticated: true})

	_, err := router.Push(context.Background(), "/nodes")
	require.NoError(t, err)
	_, err = router.Push(context.Background(), "/system/users")
	require.NoError(t, err)
	_, err = router.Replace(context.Background(), navigation.Location{Name: navigation.RouteSystemSettings})
	require.NoError(t, err)

	history := router.History()
	require.Len(t, history, 2)
	require.Equal(t, navigation.RouteNodeList, history[0].Name)
	require.Equal(t, navigation.RouteSystemSettings, history[1].Name)
}

func TestGuardRedirectLoop(t *testing.T) {
	// every destination requires auth, including login
	router := navigation.NewRouter(
		navigation.NewGuard(&fakeSession{}, &fakeRefresher{session: &fakeSession{}}),
		navigation.WithRoutes(navigation.Route{Path: "/login", Name: navigation.RouteLogin, RequiresAuth: true}),
	)

	_, err := router.Push(context.Background(), "/login")
	require.ErrorIs(t, err, navigation.ErrRedirectLoop)
	_, ok := router.Current()
	require.False(t, ok)
}

func TestPostLoginTarget(t *testing.T) {
	t.Run("default landing", func(t *testing.T) {
		router, _ := newRouter(&fakeSession{})
		require.Equal(t, "/nodes", router.PostLoginTarget())
	})

	t.Run("external redirect ignored", func(t *testing.T) {
		router, _ := newRouter(&fakeSession{})
		_, err := router.Replace(context.Background(), navigation.LoginLocation("//evil.example.com/x"))
		require.NoError(t, err)
		require.Equal(t, "/nodes", router.PostLoginTarget())
	})
}

func TestPushRejectsAbsoluteURL(t *testing.T) {
	router, _ := newRouter(&fakeSession{})
	_, err := router.Push(context.Background(), "https://example.com/nodes")
	require.Error(t, err)
}
