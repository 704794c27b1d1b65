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

// signUpRoles are the account types a visitor can create; staff roles are issued by the backend.
var signUpRoles = []users.Role{users.RoleLearner, users.RoleSpeaker}

func canSignUpAs(role users.Role) bool {
	for _, r := range signUpRoles {
		if r == role {
			return true
		}
	}
	return false
}

// SignInPageHandler displays the sign in page (GET /signin)
func (s *Server) SignInPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signin.html")

	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := browserFrom(r.Context())
		next := safeNext(r.URL.Query().Get("next"))

		if state := b.Session.Snapshot(); state.IsAuthenticated && state.User != nil {
			redirectSuccess(w, r, afterSignIn(next, state.User.Role))
			return
		}

		data := s.pageData(r)
		data.Next = next
		data.Email = r.URL.Query().Get("email")
		data.Error = r.URL.Query().Get("error")
		data.GoogleEnabled = identity.Available(s.identity) == nil
		render(w, tmpl, http.StatusOK, data)
	}
}

// SignInSubmissionHandler processes the sign in form (POST /signin)
func (s *Server) SignInSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signin.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		b, _ := browserFrom(r.Context())
		email := r.FormValue("email")
		next := safeNext(r.FormValue("next"))

		// Leaving the page must not abandon the attempt half way
		ctx := context.WithoutCancel(r.Context())
		if err := b.Session.Login(ctx, email, r.FormValue("password")); err != nil {
			if errors.Is(err, session.ErrSuperseded) {
				redirectSuccess(w, r, signInURL(next))
				return
			}
			log.Debug().Err(err).Msg("sign in failed")
			data := s.pageData(r)
			data.Next = next
			data.Email = email
			data.Error = apperrors.UserMessage(err)
			data.GoogleEnabled = identity.Available(s.identity) == nil
			render(w, tmpl, statusFor(err), data)
			return
		}

		redirectSuccess(w, r, afterSignIn(next, b.Session.Snapshot().Role()))
	}
}

// SignUpPageHandler displays the registration form (GET /signup)
func (s *Server) SignUpPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")

	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := browserFrom(r.Context())
		if state := b.Session.Snapshot(); state.IsAuthenticated && state.User != nil {
			redirectSuccess(w, r, users.LandingRoute(state.User.Role))
			return
		}

		data := s.pageData(r)
		data.Error = r.URL.Query().Get("error")
		data.GoogleEnabled = identity.Available(s.identity) == nil
		data.Roles = signUpRoles
		render(w, tmpl, http.StatusOK, data)
	}
}

// SignUpSubmissionHandler creates an account (POST /signup)
func (s *Server) SignUpSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		b, _ := browserFrom(r.Context())

		req := users.RegisterRequest{
			FirstName:       r.FormValue("firstname"),
			LastName:        r.FormValue("lastname"),
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
			TermsAccepted:   checked(r.FormValue("termsAccepted")),
			PrivacyAccepted: checked(r.FormValue("privacyAccepted")),
		}

		ctx := context.WithoutCancel(r.Context())
		if err := b.Session.Register(ctx, req); err != nil {
			if errors.Is(err, session.ErrSuperseded) {
				redirectSuccess(w, r, RouteSignUp)
				return
			}
			data := s.pageData(r)
			data.Email = req.Email
			data.Error = apperrors.UserMessage(err)
			data.GoogleEnabled = identity.Available(s.identity) == nil
			data.Roles = signUpRoles
			render(w, tmpl, statusFor(err), data)
			return
		}

		redirectSuccess(w, r, users.LandingRoute(b.Session.Snapshot().Role()))
	}
}

// LogoutHandler always signs the browser out, whatever the backend says (POST /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := browserFrom(r.Context())
		if err := b.Session.Logout(context.WithoutCancel(r.Context())); err != nil {
			log.Warn().Err(err).Str("browser", b.ID).Msg("logout")
		}
		redirectSuccess(w, r, RouteIndex)
	}
}

// checked reads an HTML checkbox value.
func checked(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
