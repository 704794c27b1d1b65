// Package apifake is an in-memory stand-in for the backend used by tests.
package apifake

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/lingo-web/analytics"
	"github.com/jrsteele09/lingo-web/apiclient"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/users"
)

// FakeAuthAPI answers through the *Func fields; a nil field gives the
// default failure for that call.
type FakeAuthAPI struct {
	lock sync.Mutex

	LoginFunc       func(ctx context.Context, req users.LoginRequest) (apiclient.AuthResult, error)
	RegisterFunc    func(ctx context.Context, req users.RegisterRequest) (apiclient.AuthResult, error)
	GoogleAuthFunc  func(ctx context.Context, credential string, role users.Role) (apiclient.AuthResult, error)
	CurrentUserFunc func(ctx context.Context, token string) (*users.User, error)
	AcceptTermsFunc func(ctx context.Context, token string) (*users.User, error)
	LogoutFunc      func(ctx context.Context, token string) error
	AnalyticsFunc   func(ctx context.Context, token string) (analytics.Report, error)

	calls map[string]int
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{calls: make(map[string]int)}
}

func (f *FakeAuthAPI) record(name string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[name]++
}

// Calls returns how often name was called.
func (f *FakeAuthAPI) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

// TotalCalls counts every backend call.
func (f *FakeAuthAPI) TotalCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func unauthorized(op string) error {
	return apperrors.Auth(op, http.StatusUnauthorized, "Unauthorized")
}

func (f *FakeAuthAPI) Login(ctx context.Context, req users.LoginRequest) (apiclient.AuthResult, error) {
	f.record("Login")
	if f.LoginFunc == nil {
		return apiclient.AuthResult{}, unauthorized("apifake.Login")
	}
	return f.LoginFunc(ctx, req)
}

func (f *FakeAuthAPI) Register(ctx context.Context, req users.RegisterRequest) (apiclient.AuthResult, error) {
	f.record("Register")
	if f.RegisterFunc == nil {
		return apiclient.AuthResult{}, apperrors.Rejected("apifake.Register", http.StatusConflict, "Email already registered")
	}
	return f.RegisterFunc(ctx, req)
}

func (f *FakeAuthAPI) GoogleAuth(ctx context.Context, credential string, role users.Role) (apiclient.AuthResult, error) {
	f.record("GoogleAuth")
	if f.GoogleAuthFunc == nil {
		return apiclient.AuthResult{}, unauthorized("apifake.GoogleAuth")
	}
	return f.GoogleAuthFunc(ctx, credential, role)
}

func (f *FakeAuthAPI) CurrentUser(ctx context.Context, token string) (*users.User, error) {
	f.record("CurrentUser")
	if f.CurrentUserFunc == nil {
		return nil, unauthorized("apifake.CurrentUser")
	}
	return f.CurrentUserFunc(ctx, token)
}

func (f *FakeAuthAPI) AcceptTerms(ctx context.Context, token string) (*users.User, error) {
	f.record("AcceptTerms")
	if f.AcceptTermsFunc == nil {
		return nil, apperrors.Network("apifake.AcceptTerms", context.DeadlineExceeded)
	}
	return f.AcceptTermsFunc(ctx, token)
}

func (f *FakeAuthAPI) Logout(ctx context.Context, token string) error {
	f.record("Logout")
	if f.LogoutFunc == nil {
		return nil
	}
	return f.LogoutFunc(ctx, token)
}

func (f *FakeAuthAPI) Analytics(ctx context.Context, token string) (analytics.Report, error) {
	f.record("Analytics")
	if f.AnalyticsFunc == nil {
		return analytics.Report{}, nil
	}
	return f.AnalyticsFunc(ctx, token)
}

// Result is a convenience for the common success answer.
func Result(token string, user *users.User) func(context.Context, users.LoginRequest) (apiclient.AuthResult, error) {
	return func(context.Context, users.LoginRequest) (apiclient.AuthResult, error) {
		return apiclient.AuthResult{Token: token, User: user}, nil
	}
}
