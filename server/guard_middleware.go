package server

import (
	"net/http"

	"github.com/jrsteele09/lingo-web/guard"
	"github.com/rs/zerolog/log"
)

// loadingRefreshSeconds is how often the loading page polls while hydration runs.
const loadingRefreshSeconds = "1"

// GuardMiddleware evaluates the route policy against the browser's current
// session on every request.
func (s *Server) GuardMiddleware(next http.HandlerFunc) http.HandlerFunc {
	loadingTmpl := mustParseTemplate("loading.html")
	unauthorizedTmpl := mustParseTemplate("unauthorized.html")
	termsTmpl := mustParseTemplate("terms.html")

	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := browserFrom(r.Context())
		if !ok {
			http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
			return
		}

		state := b.Session.Snapshot()
		decision := guard.Evaluate(state, s.policy.For(r.URL.Path))
		if decision != guard.DecisionRender {
			log.Debug().Str("path", r.URL.Path).Str("decision", decision.String()).Str("phase", string(state.Phase())).Msg("guard")
		}

		switch decision {
		case guard.DecisionLoading:
			w.Header().Set("Refresh", loadingRefreshSeconds)
			render(w, loadingTmpl, http.StatusOK, s.pageData(r))
		case guard.DecisionRedirect:
			redirectSuccess(w, r, signInURL(r.URL.RequestURI()))
		case guard.DecisionUnauthorized:
			render(w, unauthorizedTmpl, http.StatusForbidden, s.pageData(r))
		case guard.DecisionTermsGate:
			data := s.pageData(r)
			data.Next = r.URL.RequestURI()
			render(w, termsTmpl, http.StatusOK, data)
		default:
			next(w, r)
		}
	}
}
