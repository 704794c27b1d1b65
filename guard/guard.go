// Package guard decides what a route may render for the current session.
package guard

import (
	"github.com/jrsteele09/lingo-web/session"
	"github.com/jrsteele09/lingo-web/users"
)

type Decision int

const (
	// DecisionLoading renders only a neutral loading indicator
	DecisionLoading Decision = iota
	// DecisionRedirect sends the browser to sign in
	DecisionRedirect
	// DecisionUnauthorized renders a placeholder, never a redirect, so a signed in user with the wrong role can't loop
	DecisionUnauthorized
	// DecisionTermsGate withholds the page until terms and privacy are acknowledged
	DecisionTermsGate
	// DecisionRender renders the page
	DecisionRender
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionUnauthorized:
		return "unauthorized"
	case DecisionTermsGate:
		return "terms_gate"
	case DecisionRender:
		return "render"
	default:
		return "unknown"
	}
}

// Requirement is what a route asks of the session. The zero value is public,
// but a policy entry that omits requireAuth requires sign in.
type Requirement struct {
	RequireAuth  bool         `yaml:"requireAuth"`
	AllowedRoles []users.Role `yaml:"allowedRoles,omitempty"`
}

// Public routes render for anyone.
func Public() Requirement {
	return Requirement{}
}

// Authenticated requires a signed in user, optionally with one of roles.
func Authenticated(roles ...users.Role) Requirement {
	return Requirement{RequireAuth: true, AllowedRoles: roles}
}

// Evaluate is run again on every request, so any change to the session shows on the next page.
func Evaluate(s session.State, r Requirement) Decision {
	if s.IsLoading {
		return DecisionLoading
	}
	if r.RequireAuth && !s.IsAuthenticated {
		return DecisionRedirect
	}
	if len(r.AllowedRoles) > 0 && !s.User.HasRole(r.AllowedRoles...) {
		return DecisionUnauthorized
	}
	if s.User.NeedsAcceptance() {
		return DecisionTermsGate
	}
	return DecisionRender
}
