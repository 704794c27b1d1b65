// Package server is the web surface: it keeps one session per browser,
// applies the route guard to every page and renders the views.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/lingo-web/analytics"
	"github.com/jrsteele09/lingo-web/guard"
	"github.com/jrsteele09/lingo-web/identity"
	"github.com/jrsteele09/lingo-web/internal/config"
	"github.com/jrsteele09/lingo-web/session"
	"github.com/jrsteele09/lingo-web/storage"
	"github.com/jrsteele09/lingo-web/terms"
	"github.com/rs/zerolog/log"
)

// API is the backend surface the web client consumes.
type API interface {
	session.AuthAPI
	terms.Recorder
	Analytics(ctx context.Context, token string) (analytics.Report, error)
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      API
	policy   *guard.Policy
	gate     *terms.Gate
	browsers *BrowserRegistry
	identity identity.Provider
	flows    identity.FlowRepo
	now      func() time.Time
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithPolicy replaces the compiled in route policy.
func WithPolicy(p *guard.Policy) ServerOption {
	return func(s *Server) {
		s.policy = p
	}
}

// WithIdentityProvider enables social sign-in.
func WithIdentityProvider(p identity.Provider) ServerOption {
	return func(s *Server) {
		s.identity = p
	}
}

func WithFlowRepo(r identity.FlowRepo) ServerOption {
	return func(s *Server) {
		s.flows = r
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = nowFunc
	}
}

func New(cfg config.Config, api API, kv storage.KV, options ...ServerOption) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("[Server New] api is required")
	}
	if kv == nil {
		return nil, fmt.Errorf("[Server New] storage is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		api:      api,
		policy:   guard.DefaultPolicy(),
		identity: identity.Unconfigured{},
		flows:    identity.NewInMemoryFlowRepo(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.gate = terms.NewGate(api, terms.WithNowTime(s.now))
	s.browsers = NewBrowserRegistry(kv, api, WithRegistryClock(s.now))

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Sweep forgets idle browsers and abandoned sign-in flows. Stored
// credentials survive, so a returning browser hydrates again.
func (s *Server) Sweep() {
	now := s.now()
	browsers := s.browsers.Sweep(s.config.GetBrowserIdleTimeout())
	flows := s.flows.DeleteExpired(now.Add(-s.config.GetAuthFlowTimeout()))
	if browsers > 0 || flows > 0 {
		log.Debug().Int("browsers", browsers).Int("flows", flows).Msg("swept idle state")
	}
}

// Wait blocks until background terms acknowledgements have been recorded.
func (s *Server) Wait() {
	s.gate.Wait()
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			log.Info().Str("path", parts[0]).Msg("route")
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
