package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/lingo-web/identity"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/session"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/rs/zerolog/log"
)

const flowExpiredMessage = "Your Google sign-in expired. Please try again."

// GoogleStartHandler sends the browser to Google's consent page (GET /auth/google)
func (s *Server) GoogleStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := browserFrom(r.Context())
		next := safeNext(r.URL.Query().Get("next"))

		if err := identity.Available(s.identity); err != nil {
			redirectWithError(w, r, signInURL(next), apperrors.UserMessage(err))
			return
		}

		var role users.Role
		if v := r.URL.Query().Get("role"); v != "" {
			parsed, err := users.ParseRole(v)
			if err != nil || !canSignUpAs(parsed) {
				redirectWithError(w, r, RouteSignUp, "Please choose a valid account type.")
				return
			}
			role = parsed
		}

		state := identity.RandomString(32)
		verifier := identity.NewVerifier()
		nonce := identity.RandomString(16)
		flow := &identity.FlowState{
			BrowserID:    b.ID,
			CodeVerifier: verifier,
			Nonce:        nonce,
			Role:         role,
			ReturnURL:    next,
			CreatedAt:    s.now(),
		}
		if err := s.flows.Upsert(state, flow); err != nil {
			log.Err(err).Msg("storing sign-in flow")
			redirectWithError(w, r, signInURL(next), apperrors.UserMessage(err))
			return
		}

		redirectSuccess(w, r, s.identity.AuthCodeURL(state, identity.Challenge(verifier), nonce))
	}
}

// GoogleCallbackHandler finishes the Google flow and exchanges the ID token
// for a platform credential (GET /auth/google/callback)
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := browserFrom(r.Context())
		state := r.FormValue("state")
		code := r.FormValue("code")

		if errorParam := r.FormValue("error"); errorParam != "" {
			log.Debug().Str("error", errorParam).Str("description", r.FormValue("error_description")).Msg("google sign-in declined")
			redirectWithError(w, r, RouteSignIn, "Google sign-in was cancelled.")
			return
		}
		if code == "" || state == "" {
			redirectWithError(w, r, RouteSignIn, flowExpiredMessage)
			return
		}

		flow, err := s.flows.Get(state)
		if err != nil {
			redirectWithError(w, r, RouteSignIn, flowExpiredMessage)
			return
		}
		// Single use
		if err := s.flows.Delete(state); err != nil {
			log.Warn().Err(err).Msg("deleting sign-in flow")
		}
		if flow.BrowserID != b.ID || s.now().Sub(flow.CreatedAt) > s.config.GetAuthFlowTimeout() {
			redirectWithError(w, r, signInURL(flow.ReturnURL), flowExpiredMessage)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		rawIDToken, err := s.identity.Exchange(ctx, code, flow.CodeVerifier, flow.Nonce)
		if err != nil {
			log.Warn().Err(err).Msg("google exchange failed")
			redirectWithError(w, r, signInURL(flow.ReturnURL), apperrors.UserMessage(err))
			return
		}

		if err := b.Session.GoogleAuth(ctx, rawIDToken, flow.Role); err != nil {
			if errors.Is(err, session.ErrSuperseded) {
				redirectSuccess(w, r, signInURL(flow.ReturnURL))
				return
			}
			redirectWithError(w, r, signInURL(flow.ReturnURL), apperrors.UserMessage(err))
			return
		}

		redirectSuccess(w, r, afterSignIn(flow.ReturnURL, b.Session.Snapshot().Role()))
	}
}
