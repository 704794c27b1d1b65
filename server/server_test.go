package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/lingo-web/analytics"
	"github.com/jrsteele09/lingo-web/apiclient"
	"github.com/jrsteele09/lingo-web/apiclient/apifake"
	"github.com/jrsteele09/lingo-web/identity"
	"github.com/jrsteele09/lingo-web/internal/config"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/server"
	"github.com/jrsteele09/lingo-web/storage"
	"github.com/jrsteele09/lingo-web/tokenstore"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "secret123"
	testToken    = "tok123"
	browserID    = "5f1f4e3a-9a43-4a8e-9c55-0a4b7b3c2d11"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type testFixture struct {
	api    *apifake.FakeAuthAPI
	kv     *storage.MemoryKV
	srv    *server.Server
	ts     *httptest.Server
	client *http.Client
}

func setupTestFixture(t *testing.T, options ...server.ServerOption) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")

	api := apifake.NewFakeAuthAPI()
	kv := storage.NewMemoryKV()
	options = append([]server.ServerOption{server.WithNowTime(func() time.Time { return testNow })}, options...)
	srv, err := server.New(config.New(), api, kv, options...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testFixture{api: api, kv: kv, srv: srv, ts: ts, client: client}
}

// useBrowser pins the browser id so storage can be seeded before the first request.
func (f *testFixture) useBrowser(t *testing.T, token string) {
	t.Helper()
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	f.client.Jar.SetCookies(u, []*http.Cookie{{Name: "browser_id", Value: browserID}})
	if token != "" {
		require.NoError(t, tokenstore.New(storage.Namespace(f.kv, browserID)).Set(context.Background(), token))
	}
}

func (f *testFixture) storedToken(t *testing.T) (string, bool) {
	t.Helper()
	token, ok, err := tokenstore.New(storage.Namespace(f.kv, browserID)).Get(context.Background())
	require.NoError(t, err)
	return token, ok
}

func (f *testFixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.Get(f.ts.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *testFixture) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.PostForm(f.ts.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *testFixture) signIn(t *testing.T, user *users.User) {
	t.Helper()
	f.api.LoginFunc = apifake.Result(testToken, user)
	resp, _ := f.post(t, "/signin", url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func accepted(id string, role users.Role) *users.User {
	return &users.User{ID: id, FirstName: "Ana", LastName: "Lopez", Email: testEmail, Role: role, TermsAccepted: true, PrivacyAccepted: true}
}

func TestGuard_AnonymousIsRedirectedToSignIn(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, "/speakers")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/signin?next=%2Fspeakers", resp.Header.Get("Location"))
	require.Zero(t, f.api.TotalCalls())
}

func TestGuard_HTMXRedirect(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/dashboard", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/signin?next=%2Fdashboard", resp.Header.Get("HX-Redirect"))
}

func TestPublicPages(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Practice languages with native speakers")
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))

	resp, body = f.get(t, "/signin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `action="/signin"`)
	require.NotContains(t, body, "Continue with Google")
}

func TestSignIn_LandsOnRoleRoute(t *testing.T) {
	tests := []struct {
		role users.Role
		want string
	}{
		{users.RoleLearner, "/speakers"},
		{users.RoleSpeaker, "/dashboard"},
		{users.RoleAdmin, "/admin/dashboard"},
		{users.RoleModerator, "/admin/dashboard"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f := setupTestFixture(t)
			f.api.LoginFunc = apifake.Result(testToken, accepted("u1", tt.role))

			resp, _ := f.post(t, "/signin", url.Values{"email": {testEmail}, "password": {testPassword}})
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			require.Equal(t, tt.want, resp.Header.Get("Location"))
		})
	}
}

func TestSignIn_ReturnsToRequestedPage(t *testing.T) {
	f := setupTestFixture(t)
	f.api.LoginFunc = apifake.Result(testToken, accepted("u1", users.RoleLearner))

	resp, _ := f.post(t, "/signin", url.Values{"email": {testEmail}, "password": {testPassword}, "next": {"/speakers?lang=es"}})
	require.Equal(t, "/speakers?lang=es", resp.Header.Get("Location"))

	resp, body := f.get(t, "/speakers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Find a speaker")
	require.Contains(t, body, "Ana Lopez")

	token, ok := f.storedToken(t)
	require.True(t, ok)
	require.Equal(t, testToken, token)
}

func TestSignIn_RejectsOffsiteNext(t *testing.T) {
	f := setupTestFixture(t)
	f.api.LoginFunc = apifake.Result(testToken, accepted("u1", users.RoleLearner))

	resp, _ := f.post(t, "/signin", url.Values{"email": {testEmail}, "password": {testPassword}, "next": {"//evil.example.com/"}})
	require.Equal(t, "/speakers", resp.Header.Get("Location"))
}

func TestSignIn_Failure(t *testing.T) {
	f := setupTestFixture(t)
	f.api.LoginFunc = func(context.Context, users.LoginRequest) (apiclient.AuthResult, error) {
		return apiclient.AuthResult{}, apperrors.Auth("apiclient.Login", http.StatusUnauthorized, "Invalid email or password")
	}

	resp, body := f.post(t, "/signin", url.Values{"email": {testEmail}, "password": {"wrong-password"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "Invalid email or password")
	require.Contains(t, body, testEmail)

	_, ok := f.storedToken(t)
	require.False(t, ok)
}

func TestSignIn_NetworkFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.api.LoginFunc = func(context.Context, users.LoginRequest) (apiclient.AuthResult, error) {
		return apiclient.AuthResult{}, apperrors.Network("apiclient.Login", context.DeadlineExceeded)
	}

	resp, body := f.post(t, "/signin", url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Contains(t, body, "check your connection")
}

func TestSignUp_ValidationNeverReachesBackend(t *testing.T) {
	f := setupTestFixture(t)

	form := url.Values{
		"firstname":       {"Ana"},
		"lastname":        {"Lopez"},
		"email":           {testEmail},
		"password":        {"short"},
		"confirmPassword": {"short"},
		"termsAccepted":   {"on"},
		"privacyAccepted": {"on"},
	}
	resp, body := f.post(t, "/signup", form)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "password must be at least 8 characters long")

	form.Set("password", testPassword)
	form.Set("confirmPassword", testPassword)
	form.Del("privacyAccepted")
	resp, body = f.post(t, "/signup", form)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "you must accept the privacy policy")

	require.Zero(t, f.api.TotalCalls())
}

func TestSignUp_Success(t *testing.T) {
	f := setupTestFixture(t)
	var got users.RegisterRequest
	f.api.RegisterFunc = func(_ context.Context, req users.RegisterRequest) (apiclient.AuthResult, error) {
		got = req
		return apiclient.AuthResult{Token: testToken, User: accepted("u2", users.RoleLearner)}, nil
	}

	resp, _ := f.post(t, "/signup", url.Values{
		"firstname":       {"Ana"},
		"lastname":        {"Lopez"},
		"email":           {testEmail},
		"password":        {testPassword},
		"confirmPassword": {testPassword},
		"termsAccepted":   {"on"},
		"privacyAccepted": {"on"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/speakers", resp.Header.Get("Location"))
	require.True(t, got.TermsAccepted)
	require.True(t, got.PrivacyAccepted)
}

func TestSignUp_BackendRejection(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.post(t, "/signup", url.Values{
		"firstname":       {"Ana"},
		"lastname":        {"Lopez"},
		"email":           {testEmail},
		"password":        {testPassword},
		"confirmPassword": {testPassword},
		"termsAccepted":   {"on"},
		"privacyAccepted": {"on"},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, body, "Email already registered")
}

func TestGuard_WrongRoleSeesPlaceholder(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, accepted("u1", users.RoleLearner))

	resp, body := f.get(t, "/admin/dashboard")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
	require.Contains(t, body, "You don't have access to this page")
	require.Zero(t, f.api.Calls("Analytics"))
}

func TestTermsGate_BlocksUntilAccepted(t *testing.T) {
	f := setupTestFixture(t)
	user := accepted("u1", users.RoleLearner)
	user.PrivacyAccepted = false
	f.signIn(t, user)

	recorded := make(chan struct{})
	f.api.AcceptTermsFunc = func(context.Context, string) (*users.User, error) {
		<-recorded
		return accepted("u1", users.RoleLearner), nil
	}

	resp, body := f.get(t, "/speakers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Please review our updated terms")
	require.NotContains(t, body, "Find a speaker")

	// Public pages are gated too
	_, body = f.get(t, "/")
	require.Contains(t, body, "Please review our updated terms")

	resp, _ = f.post(t, "/terms/accept", url.Values{"next": {"/speakers"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/speakers", resp.Header.Get("Location"))

	// Unblocked before the backend has answered
	resp, body = f.get(t, "/speakers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Find a speaker")

	close(recorded)
	f.srv.Wait()
	require.Equal(t, 1, f.api.Calls("AcceptTerms"))
}

func TestTermsAccept_RequiresSignIn(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.post(t, "/terms/accept", url.Values{"next": {"/speakers"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/signin?next=%2Fspeakers", resp.Header.Get("Location"))
	require.Zero(t, f.api.Calls("AcceptTerms"))
}

func TestHydration_ShowsLoadingThenRenders(t *testing.T) {
	f := setupTestFixture(t)
	f.useBrowser(t, testToken)

	release := make(chan struct{})
	f.api.CurrentUserFunc = func(_ context.Context, token string) (*users.User, error) {
		<-release
		return accepted("u1", users.RoleLearner), nil
	}

	resp, body := f.get(t, "/speakers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Refresh"))
	require.Contains(t, body, "Loading")
	require.NotContains(t, body, "Find a speaker")

	close(release)
	require.Eventually(t, func() bool {
		resp, body := f.get(t, "/speakers")
		return resp.StatusCode == http.StatusOK && strings.Contains(body, "Find a speaker")
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, f.api.Calls("CurrentUser"))
}

func TestHydration_RejectedCredentialSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.useBrowser(t, testToken)

	require.Eventually(t, func() bool {
		resp, _ := f.get(t, "/speakers")
		return resp.StatusCode == http.StatusSeeOther
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := f.storedToken(t)
	require.False(t, ok)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.api.LogoutFunc = func(context.Context, string) error {
		return apperrors.Network("apiclient.Logout", context.DeadlineExceeded)
	}
	f.useBrowser(t, "")
	f.signIn(t, accepted("u1", users.RoleSpeaker))

	resp, _ := f.post(t, "/auth/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.Equal(t, 1, f.api.Calls("Logout"))

	resp, _ = f.get(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, ok := f.storedToken(t)
	require.False(t, ok)
}

func TestAdminDashboard(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, accepted("a1", users.RoleAdmin))
	var gotToken string
	f.api.AnalyticsFunc = func(_ context.Context, token string) (analytics.Report, error) {
		gotToken = token
		return analytics.Report{
			TotalUsers:    4321,
			TotalSpeakers: 87,
			TotalBookings: 950,
			RevenueCents:  1234567,
			DailyBookings: []analytics.DailyCount{{Day: "2026-03-14", Count: 7}},
		}, nil
	}

	resp, body := f.get(t, "/admin/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "4321")
	require.Contains(t, body, "<td>2026-03-14</td><td>7</td>")
	require.Contains(t, body, "<td>2026-03-01</td><td>0</td>")
	require.Equal(t, testToken, gotToken)
}

func TestAdminDashboard_RejectedCredentialSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.useBrowser(t, "")
	f.signIn(t, accepted("a1", users.RoleModerator))
	f.api.AnalyticsFunc = func(context.Context, string) (analytics.Report, error) {
		return analytics.Report{}, apperrors.Auth("apiclient.Analytics", http.StatusUnauthorized, "Unauthorized")
	}

	resp, _ := f.get(t, "/admin/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/signin?next=%2Fadmin%2Fdashboard", resp.Header.Get("Location"))

	_, ok := f.storedToken(t)
	require.False(t, ok)
}

func TestAdminDashboard_NetworkErrorStaysSignedIn(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, accepted("a1", users.RoleAdmin))
	f.api.AnalyticsFunc = func(context.Context, string) (analytics.Report, error) {
		return analytics.Report{}, apperrors.Network("apiclient.Analytics", context.DeadlineExceeded)
	}

	resp, body := f.get(t, "/admin/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "check your connection")
}

func TestAdminDashboard_ForbiddenKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.useBrowser(t, "")
	f.signIn(t, accepted("m1", users.RoleModerator))
	f.api.AnalyticsFunc = func(context.Context, string) (analytics.Report, error) {
		return analytics.Report{}, apperrors.Auth("apiclient.Analytics", http.StatusForbidden, "Forbidden")
	}

	resp, body := f.get(t, "/admin/dashboard")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body, "You don't have access to this page")

	token, ok := f.storedToken(t)
	require.True(t, ok)
	require.Equal(t, testToken, token)

	resp, _ = f.get(t, "/speakers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLanguagePreference(t *testing.T) {
	f := setupTestFixture(t)

	_, body := f.get(t, "/")
	require.Contains(t, body, `<html lang="en">`)

	resp, _ := f.post(t, "/preferences/language", url.Values{"language": {"es"}, "next": {"/signin"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/signin", resp.Header.Get("Location"))

	_, body = f.get(t, "/")
	require.Contains(t, body, `<html lang="es">`)

	resp, _ = f.post(t, "/preferences/language", url.Values{"language": {"fr"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok","browsers":0}`, body)
}

func TestSweep_ForgetsIdleBrowsersButKeepsCredential(t *testing.T) {
	now := testNow
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	f := setupTestFixture(t, server.WithNowTime(clock))
	f.useBrowser(t, "")
	f.signIn(t, accepted("u1", users.RoleLearner))

	mu.Lock()
	now = now.Add(3 * time.Hour)
	mu.Unlock()
	f.srv.Sweep()

	_, body := f.get(t, "/healthz")
	require.JSONEq(t, `{"status":"ok","browsers":0}`, body)

	token, ok := f.storedToken(t)
	require.True(t, ok)
	require.Equal(t, testToken, token)
}

type fakeProvider struct {
	mu         sync.Mutex
	challenges map[string]string
	nonces     map[string]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{challenges: make(map[string]string), nonces: make(map[string]string)}
}

func (p *fakeProvider) AuthCodeURL(state, codeChallenge, nonce string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.challenges[state] = codeChallenge
	p.nonces[state] = nonce
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

// Exchange treats the code as the state so the PKCE pair can be checked.
func (p *fakeProvider) Exchange(_ context.Context, code, codeVerifier, nonce string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if identity.Challenge(codeVerifier) != p.challenges[code] || nonce != p.nonces[code] {
		return "", apperrors.Auth("fake.Exchange", 0, "Google sign-in could not be verified")
	}
	return "google-id-token", nil
}

func TestGoogleSignUp(t *testing.T) {
	f := setupTestFixture(t, server.WithIdentityProvider(newFakeProvider()))

	var gotCredential string
	var gotRole users.Role
	f.api.GoogleAuthFunc = func(_ context.Context, credential string, role users.Role) (apiclient.AuthResult, error) {
		gotCredential = credential
		gotRole = role
		return apiclient.AuthResult{Token: testToken, User: accepted("u9", users.RoleSpeaker)}, nil
	}

	_, body := f.get(t, "/signup")
	require.Contains(t, body, "/auth/google?role=speaker")

	resp, _ := f.get(t, "/auth/google?role=speaker")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	consent, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "accounts.example.com", consent.Host)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	callback := "/auth/google/callback?" + url.Values{"code": {state}, "state": {state}}.Encode()
	resp, _ = f.get(t, callback)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	require.Equal(t, "google-id-token", gotCredential)
	require.Equal(t, users.RoleSpeaker, gotRole)

	// A state can only be used once
	resp, _ = f.get(t, callback)
	require.Contains(t, resp.Header.Get("Location"), "/signin?error=")
	require.Equal(t, 1, f.api.Calls("GoogleAuth"))
}

func TestGoogle_RejectsStaffRole(t *testing.T) {
	f := setupTestFixture(t, server.WithIdentityProvider(newFakeProvider()))

	resp, _ := f.get(t, "/auth/google?role=admin")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/signup?error="))
}

func TestGoogle_NotConfigured(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, "/auth/google")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/signin?error=Google+sign-in+is+not+configured", resp.Header.Get("Location"))
}

func TestGoogle_Cancelled(t *testing.T) {
	f := setupTestFixture(t, server.WithIdentityProvider(newFakeProvider()))

	resp, _ := f.get(t, "/auth/google/callback?error=access_denied")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "cancelled")
	require.Zero(t, f.api.Calls("GoogleAuth"))
}
