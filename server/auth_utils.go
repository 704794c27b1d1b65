package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/users"
)

// browserCookieName identifies the browser across requests. It carries no credential.
const browserCookieName = "browser_id"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyBrowser stores the *Browser of the request
const ContextKeyBrowser ContextKey = "browser"

func browserFrom(ctx context.Context) (*Browser, bool) {
	b, ok := ctx.Value(ContextKeyBrowser).(*Browser)
	return b, ok && b != nil
}

func (s *Server) SetBrowserCookie(w http.ResponseWriter, browserID string, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     browserCookieName,
		Value:    browserID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetBrowserCookieMaxAge().Seconds()),
	})
}

// BrowserMiddleware resolves the browser of the request, issuing a new id
// when the cookie is missing or malformed.
func (s *Server) BrowserMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var browserID string
		if cookie, err := r.Cookie(browserCookieName); err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				browserID = id.String()
			}
		}
		if browserID == "" {
			browserID = uuid.NewString()
		}
		s.SetBrowserCookie(w, browserID, r)

		b, err := s.browsers.Open(r.Context(), browserID)
		if err != nil {
			http.Error(w, apperrors.UserMessage(err), http.StatusInternalServerError)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyBrowser, b)))
	}
}

// safeNext only accepts a local path so sign-in can't be used as an open redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}

// afterSignIn is the requested return path or the landing page of the role.
func afterSignIn(next string, role users.Role) string {
	if n := safeNext(next); n != "" {
		return n
	}
	return users.LandingRoute(role)
}

func signInURL(next string) string {
	if n := safeNext(next); n != "" {
		return RouteSignIn + "?next=" + url.QueryEscape(n)
	}
	return RouteSignIn
}

// statusFor maps an error to the status of the page that reports it.
func statusFor(err error) int {
	var e *apperrors.Error
	if !apperrors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuth:
		return http.StatusUnauthorized
	case apperrors.KindRejected:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadRequest
	case apperrors.KindConfiguration:
		return http.StatusServiceUnavailable
	case apperrors.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	fullPath := path + sep + "error=" + url.QueryEscape(errorMsg)

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
