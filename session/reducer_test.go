package session_test

import (
	"testing"

	"github.com/jrsteele09/lingo-web/session"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	u := &users.User{ID: "u1", Role: users.RoleSpeaker}

	t.Run("login start clears error and keeps user", func(t *testing.T) {
		s := session.Reduce(session.State{Error: "bad password"}, session.Action{Type: session.ActionLoginStart})
		require.True(t, s.IsLoading)
		require.Empty(t, s.Error)
		require.Equal(t, session.PhaseAuthenticating, s.Phase())
	})

	t.Run("login success", func(t *testing.T) {
		s := session.Reduce(session.State{IsLoading: true}, session.Action{Type: session.ActionLoginSuccess, User: u})
		require.Equal(t, session.State{User: u, IsAuthenticated: true}, s)
		require.Equal(t, session.PhaseAuthenticated, s.Phase())
		require.NotSame(t, u, s.User)
	})

	t.Run("login failure", func(t *testing.T) {
		s := session.Reduce(session.State{IsLoading: true, User: u}, session.Action{Type: session.ActionLoginFailure, Error: "nope"})
		require.Equal(t, session.State{Error: "nope"}, s)
		require.Equal(t, session.PhaseError, s.Phase())
	})

	t.Run("hydrate start", func(t *testing.T) {
		s := session.Reduce(session.State{}, session.Action{Type: session.ActionHydrateStart})
		require.True(t, s.IsAuthenticated)
		require.True(t, s.IsLoading)
		require.Nil(t, s.User)
	})

	t.Run("logout and expiry reset", func(t *testing.T) {
		start := session.State{User: u, IsAuthenticated: true}
		require.Equal(t, session.State{}, session.Reduce(start, session.Action{Type: session.ActionLogout}))
		require.Equal(t, session.State{}, session.Reduce(start, session.Action{Type: session.ActionExpired}))
		require.Equal(t, session.PhaseAnonymous, session.State{}.Phase())
	})

	t.Run("set user leaves loading and error alone", func(t *testing.T) {
		start := session.State{IsAuthenticated: true, IsLoading: true, Error: "x"}
		s := session.Reduce(start, session.Action{Type: session.ActionSetUser, User: u})
		require.Equal(t, u.ID, s.User.ID)
		require.True(t, s.IsLoading)
		require.Equal(t, "x", s.Error)
	})

	t.Run("unknown action", func(t *testing.T) {
		start := session.State{User: u, IsAuthenticated: true}
		require.Equal(t, start, session.Reduce(start, session.Action{Type: "nope"}))
	})
}
