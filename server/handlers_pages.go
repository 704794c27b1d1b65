package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/lingo-web/analytics"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/terms"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/rs/zerolog/log"
)

// analyticsWindowDays is the width of the admin bookings series.
const analyticsWindowDays = 14

func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.pageData(r))
	}
}

// SpeakersHandler is the speaker directory placeholder.
func (s *Server) SpeakersHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("speakers.html")
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.pageData(r))
	}
}

// DashboardHandler is the speaker's own dashboard placeholder.
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("dashboard.html")
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.pageData(r))
	}
}

// AdminDashboardHandler shows the analytics panels. A rejected credential
// signs the browser out like any other request would; a 403 only denies the
// dashboard.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("admin_dashboard.html")
	unauthorizedTmpl := mustParseTemplate("unauthorized.html")

	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := browserFrom(r.Context())
		data := s.pageData(r)

		epoch := b.Session.Epoch()
		token, ok := b.Session.Token(r.Context())
		if !ok {
			redirectSuccess(w, r, signInURL(r.URL.RequestURI()))
			return
		}

		report, err := s.api.Analytics(r.Context(), token)
		if err != nil {
			if apperrors.IsForbidden(err) {
				render(w, unauthorizedTmpl, http.StatusForbidden, data)
				return
			}
			if b.Session.HandleError(context.WithoutCancel(r.Context()), epoch, err) {
				redirectSuccess(w, r, signInURL(r.URL.RequestURI()))
				return
			}
			log.Warn().Err(err).Msg("loading analytics")
			data.Error = apperrors.UserMessage(err)
			render(w, tmpl, http.StatusOK, data)
			return
		}

		dashboard := analytics.Shape(report, analyticsWindowDays, s.now())
		data.Dashboard = &dashboard
		render(w, tmpl, http.StatusOK, data)
	}
}

// TermsAcceptHandler records the acknowledgement and returns to the page the
// gate was covering without waiting for the backend (POST /terms/accept)
func (s *Server) TermsAcceptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		b, _ := browserFrom(r.Context())
		next := safeNext(r.FormValue("next"))

		if err := s.gate.Accept(r.Context(), b.Session); err != nil {
			if errors.Is(err, terms.ErrNotSignedIn) {
				redirectSuccess(w, r, signInURL(next))
				return
			}
			log.Err(err).Msg("accepting terms")
			http.Error(w, apperrors.UserMessage(err), http.StatusInternalServerError)
			return
		}

		if next == "" {
			next = users.LandingRoute(b.Session.Snapshot().Role())
		}
		redirectSuccess(w, r, next)
	}
}

// LanguageHandler stores the UI language of the browser (POST /preferences/language)
func (s *Server) LanguageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		b, _ := browserFrom(r.Context())
		if err := b.Preferences.SetLanguage(r.Context(), r.FormValue("language")); err != nil {
			http.Error(w, apperrors.UserMessage(err), statusFor(err))
			return
		}

		next := safeNext(r.FormValue("next"))
		if next == "" {
			next = RouteIndex
		}
		redirectSuccess(w, r, next)
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Browsers int    `json:"browsers"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Browsers: s.browsers.Len()}); err != nil {
			log.Err(err).Msg("writing health response")
		}
	}
}
