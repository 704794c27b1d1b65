// Package identity runs the Google sign-in redirect flow and hands the
// verified ID token to the session as the provider credential.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// Provider is an external identity provider.
type Provider interface {
	// AuthCodeURL returns the provider's consent URL for this flow
	AuthCodeURL(state, codeChallenge, nonce string) string

	// Exchange trades the callback code for a verified raw ID token
	Exchange(ctx context.Context, code, codeVerifier, nonce string) (string, error)
}

// GoogleProvider implements Provider with x/oauth2 and a go-oidc verifier.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider discovers Google's endpoints. Missing client settings are
// a configuration error the sign-in page shows verbatim.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, apperrors.Configuration("identity.NewGoogleProvider", "Google sign-in is not configured")
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("[identity NewGoogleProvider] discovery: %w", err)
	}

	return &GoogleProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *GoogleProvider) AuthCodeURL(state, codeChallenge, nonce string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code, codeVerifier, nonce string) (string, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return "", apperrors.Network("identity.Exchange", fmt.Errorf("google token exchange failed: %w", err))
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", apperrors.Internal("identity.Exchange", errors.New("google did not return id_token"))
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", apperrors.Auth("identity.Exchange", 0, "Google sign-in could not be verified")
	}
	if idToken.Nonce != nonce {
		return "", apperrors.Auth("identity.Exchange", 0, "Google sign-in could not be verified")
	}

	return rawIDToken, nil
}

// Unconfigured stands in for a provider that could not be built, so routes
// stay registered and report the reason.
type Unconfigured struct {
	Err error
}

var _ Provider = Unconfigured{}

func (u Unconfigured) AuthCodeURL(string, string, string) string {
	return ""
}

func (u Unconfigured) Exchange(context.Context, string, string, string) (string, error) {
	return "", Available(u)
}

// Available reports whether p can start a flow.
func Available(p Provider) error {
	if u, ok := p.(Unconfigured); ok {
		if u.Err == nil {
			return apperrors.Configuration("identity", "Google sign-in is not configured")
		}
		return u.Err
	}
	return nil
}
