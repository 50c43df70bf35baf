package apifake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/authapi"
)

var _ auth.AuthAPI = (*FakeAuthAPI)(nil)

const (
	MethodLogin        = "Login"
	MethodRegister     = "Register"
	MethodLogout       = "Logout"
	MethodRefreshToken = "RefreshToken"
)

// FakeAuthAPI answers every call with a fixed token set unless the matching
// func field is set. Calls are counted per method.
type FakeAuthAPI struct {
	LoginFunc    func(ctx context.Context, credentials authapi.Credentials) (*authapi.TokenResult, error)
	RegisterFunc func(ctx context.Context, input authapi.RegisterInput) (authapi.Profile, error)
	LogoutFunc   func(ctx context.Context, refreshToken string) error
	RefreshFunc  func(ctx context.Context, refreshToken string) (*authapi.TokenResult, error)

	calls   map[string]int
	logouts []string
	lock    sync.RWMutex
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{calls: map[string]int{}}
}

func (f *FakeAuthAPI) Login(ctx context.Context, credentials authapi.Credentials) (*authapi.TokenResult, error) {
	f.record(MethodLogin)
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, credentials)
	}
	return &authapi.TokenResult{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 3600}, nil
}

func (f *FakeAuthAPI) Register(ctx context.Context, input authapi.RegisterInput) (authapi.Profile, error) {
	f.record(MethodRegister)
	if f.RegisterFunc != nil {
		return f.RegisterFunc(ctx, input)
	}
	return authapi.Profile{"email": input.Email, "display_name": input.DisplayName}, nil
}

func (f *FakeAuthAPI) Logout(ctx context.Context, refreshToken string) error {
	f.lock.Lock()
	f.calls[MethodLogout]++
	f.logouts = append(f.logouts, refreshToken)
	f.lock.Unlock()
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

func (f *FakeAuthAPI) RefreshToken(ctx context.Context, refreshToken string) (*authapi.TokenResult, error) {
	f.record(MethodRefreshToken)
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, refreshToken)
	}
	return &authapi.TokenResult{AccessToken: "a2", ExpiresIn: 3600}, nil
}

// Calls returns how many times method was invoked
func (f *FakeAuthAPI) Calls(method string) int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.calls[method]
}

// LoggedOut returns the refresh tokens sent to Logout, in order
func (f *FakeAuthAPI) LoggedOut() []string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]string(nil), f.logouts...)
}

func (f *FakeAuthAPI) record(method string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[method]++
}
