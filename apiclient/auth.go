package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/lingo-web/analytics"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/users"
)

// AuthResult is what every credential-issuing endpoint returns.
type AuthResult struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

func (r AuthResult) validate(op string) error {
	if r.Token == "" {
		return apperrors.Internal(op, apperrors.ErrMissingToken)
	}
	if r.User == nil {
		return apperrors.Internal(op, apperrors.ErrNotFound)
	}
	return nil
}

type googleAuthRequest struct {
	Credential string     `json:"credential"`
	Role       users.Role `json:"role,omitempty"`
}

// decodeUser accepts both {"user": {...}} and a bare user object.
func decodeUser(raw json.RawMessage) *users.User {
	var envelope struct {
		User *users.User `json:"user"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.User != nil {
		return envelope.User
	}
	var u users.User
	if json.Unmarshal(raw, &u) != nil || u.ID == "" {
		return nil
	}
	return &u
}

func (c *Client) authenticate(ctx context.Context, op, path string, in any) (AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, op, http.MethodPost, path, "", in, &out); err != nil {
		return AuthResult{}, err
	}
	if err := out.validate(op); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, req users.LoginRequest) (AuthResult, error) {
	return c.authenticate(ctx, "apiclient.Login", PathLogin, req)
}

func (c *Client) Register(ctx context.Context, req users.RegisterRequest) (AuthResult, error) {
	return c.authenticate(ctx, "apiclient.Register", PathRegister, req)
}

// GoogleAuth exchanges a Google ID token for this platform's own credential.
func (c *Client) GoogleAuth(ctx context.Context, credential string, role users.Role) (AuthResult, error) {
	return c.authenticate(ctx, "apiclient.GoogleAuth", PathGoogle, googleAuthRequest{Credential: credential, Role: role})
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*users.User, error) {
	return c.userCall(ctx, "apiclient.CurrentUser", http.MethodGet, PathMe, token)
}

// AcceptTerms records the acknowledgement of the current terms and privacy policy.
func (c *Client) AcceptTerms(ctx context.Context, token string) (*users.User, error) {
	return c.userCall(ctx, "apiclient.AcceptTerms", http.MethodPost, PathAcceptTerms, token)
}

func (c *Client) userCall(ctx context.Context, op, method, path, token string) (*users.User, error) {
	if token == "" {
		return nil, apperrors.Auth(op, http.StatusUnauthorized, apperrors.ErrNoCredential.Error())
	}
	var in any
	if method == http.MethodPost {
		in = struct{}{}
	}
	var raw json.RawMessage
	if err := c.do(ctx, op, method, path, token, in, &raw); err != nil {
		return nil, err
	}
	u := decodeUser(raw)
	if u == nil {
		return nil, apperrors.Internal(op, apperrors.ErrNotFound)
	}
	return u, nil
}

// Logout tells the backend the credential is no longer in use.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.do(ctx, "apiclient.Logout", http.MethodPost, PathLogout, token, struct{}{}, nil)
}

func (c *Client) Analytics(ctx context.Context, token string) (analytics.Report, error) {
	var out analytics.Report
	if err := c.do(ctx, "apiclient.Analytics", http.MethodGet, PathAnalytics, token, nil, &out); err != nil {
		return analytics.Report{}, err
	}
	return out, nil
}
