// Package session is the single source of truth for who is signed in on a
// browser. State only changes through Actions applied by Reduce, and every
// change is published to subscribers.
package session

import "github.com/jrsteele09/lingo-web/users"

// Phase is the auth lifecycle state derived from State.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseError          Phase = "error"
)

// State is the session record. IsAuthenticated implies a credential is
// stored, although User stays nil until hydration completes.
type State struct {
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseAuthenticating
	case s.IsAuthenticated:
		return PhaseAuthenticated
	case s.Error != "":
		return PhaseError
	default:
		return PhaseAnonymous
	}
}

// Role is empty while no user is loaded.
func (s State) Role() users.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}
