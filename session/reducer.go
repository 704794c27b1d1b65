package session

import "github.com/jrsteele09/lingo-web/users"

type ActionType string

const (
	ActionLoginStart     ActionType = "login/start"
	ActionLoginSuccess   ActionType = "login/success"
	ActionLoginFailure   ActionType = "login/failure"
	ActionLogout         ActionType = "logout"
	ActionHydrateStart   ActionType = "hydrate/start"
	ActionHydrateEmpty   ActionType = "hydrate/empty"
	ActionHydrateSuccess ActionType = "hydrate/success"
	ActionExpired        ActionType = "expired"
	ActionSetUser        ActionType = "user/set"
)

type Action struct {
	Type  ActionType
	User  *users.User // LoginSuccess, HydrateSuccess, SetUser
	Error string      // LoginFailure
}

// Reduce is the transition function. It never mutates s and unknown actions
// leave the state unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionLoginStart:
		s.IsLoading = true
		s.Error = ""
	case ActionLoginSuccess, ActionHydrateSuccess:
		s = State{User: a.User.Clone(), IsAuthenticated: true}
	case ActionLoginFailure:
		s = State{Error: a.Error}
	case ActionHydrateStart:
		s = State{IsAuthenticated: true, IsLoading: true}
	case ActionLogout, ActionHydrateEmpty, ActionExpired:
		s = State{}
	case ActionSetUser:
		s.User = a.User.Clone()
	}
	return s
}
