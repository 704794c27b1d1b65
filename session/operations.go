package session

import (
	"context"

	"github.com/jrsteele09/lingo-web/apiclient"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/tokenstore"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Initialize hydrates the session from the stored credential. Without a
// credential no backend call is made.
func (s *Store) Initialize(ctx context.Context) error {
	epoch := s.currentEpoch()

	token, ok, err := s.creds.Get(ctx)
	if err != nil {
		s.transition(epoch, nil, Action{Type: ActionHydrateEmpty})
		return errors.Wrap(err, "[session Initialize] reading credential")
	}
	if !ok {
		s.transition(epoch, nil, Action{Type: ActionHydrateEmpty})
		return nil
	}

	if tokenstore.ExpiredLocally(token, s.now()) {
		log.Debug().Msg("stored credential already expired, skipping hydration")
		_, err := s.transition(epoch, func() error { return s.creds.Clear(ctx) }, Action{Type: ActionExpired})
		return errors.Wrap(err, "[session Initialize] clearing expired credential")
	}

	s.transition(epoch, nil, Action{Type: ActionHydrateStart})
	_, err = s.fetchCurrentUser(ctx, true)
	return err
}

// GetCurrentUser fetches the profile behind the stored credential. A 401 or
// 403 is a silent logout; any other failure leaves the session as it is.
func (s *Store) GetCurrentUser(ctx context.Context) (*users.User, error) {
	return s.fetchCurrentUser(ctx, false)
}

// fetchCurrentUser backs GetCurrentUser. While hydrating, every failure leaves
// the browser signed out, but only an auth failure clears the credential.
func (s *Store) fetchCurrentUser(ctx context.Context, hydrating bool) (*users.User, error) {
	epoch := s.currentEpoch()

	token, ok, err := s.creds.Get(ctx)
	if err != nil || !ok {
		if hydrating {
			s.transition(epoch, nil, Action{Type: ActionExpired})
		}
		if err != nil {
			return nil, errors.Wrap(err, "[session GetCurrentUser] reading credential")
		}
		return nil, apperrors.ErrNoCredential
	}

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		switch {
		case apperrors.IsKind(err, apperrors.KindAuth):
			log.Debug().Err(err).Msg("credential rejected, signing out")
			s.transition(epoch, func() error { return s.creds.Clear(ctx) }, Action{Type: ActionExpired})
		case hydrating:
			log.Warn().Err(err).Msg("hydration failed, continuing signed out")
			s.transition(epoch, nil, Action{Type: ActionExpired})
		}
		return nil, err
	}

	applied, _ := s.transition(epoch, nil, Action{Type: ActionHydrateSuccess, User: user})
	if !applied {
		return nil, ErrSuperseded
	}
	return user.Clone(), nil
}

// Login signs in with e-mail and password. Invalid input is rejected locally
// without touching the session state.
func (s *Store) Login(ctx context.Context, email, password string) error {
	req := users.LoginRequest{Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return err
	}
	return s.authenticate(ctx, func(ctx context.Context) (apiclient.AuthResult, error) {
		return s.api.Login(ctx, req)
	})
}

// Register creates an account. The request is never sent unless it passes
// local validation, including terms and privacy acceptance.
func (s *Store) Register(ctx context.Context, req users.RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.authenticate(ctx, func(ctx context.Context) (apiclient.AuthResult, error) {
		return s.api.Register(ctx, req)
	})
}

// GoogleAuth exchanges a Google ID token for a platform credential. role is
// the account type requested when the backend creates a new account.
func (s *Store) GoogleAuth(ctx context.Context, credential string, role users.Role) error {
	if credential == "" {
		return apperrors.Validation("missing Google credential")
	}
	if role != "" && !role.Valid() {
		return apperrors.Validation("unknown account type")
	}
	return s.authenticate(ctx, func(ctx context.Context) (apiclient.AuthResult, error) {
		return s.api.GoogleAuth(ctx, credential, role)
	})
}

func (s *Store) authenticate(ctx context.Context, call func(context.Context) (apiclient.AuthResult, error)) error {
	epoch := s.currentEpoch()
	s.transition(epoch, nil, Action{Type: ActionLoginStart})

	res, err := call(ctx)
	if err != nil {
		s.transition(epoch, nil, Action{Type: ActionLoginFailure, Error: apperrors.UserMessage(err)})
		return err
	}

	applied, err := s.transition(epoch, func() error { return s.creds.Set(ctx, res.Token) }, Action{Type: ActionLoginSuccess, User: res.User})
	if err != nil {
		s.transition(epoch, nil, Action{Type: ActionLoginFailure, Error: apperrors.UserMessage(err)})
		return errors.Wrap(err, "[session authenticate] storing credential")
	}
	if !applied {
		return ErrSuperseded
	}
	return nil
}

// Logout always signs the browser out locally. The backend is told on a best
// effort basis and its answer is ignored.
func (s *Store) Logout(ctx context.Context) error {
	token, err := s.reset(ctx, Action{Type: ActionLogout})
	if token != "" {
		if rerr := s.api.Logout(ctx, token); rerr != nil {
			log.Debug().Err(rerr).Msg("remote logout failed")
		}
	}
	return errors.Wrap(err, "[session Logout] clearing credential")
}

// SetUser patches the loaded user without touching loading or error state.
func (s *Store) SetUser(user *users.User) {
	s.Dispatch(Action{Type: ActionSetUser, User: user})
}

// HandleError lets any view report a backend error for a request started at
// epoch (see Epoch). Only a 401 means the credential is no longer valid: the
// browser is signed out silently, unless it already signed out since. A 403
// only denies that resource. It reports whether the browser was signed out.
func (s *Store) HandleError(ctx context.Context, epoch uint64, err error) bool {
	if !apperrors.IsUnauthorized(err) {
		return false
	}
	applied, cerr := s.resetFrom(ctx, epoch, Action{Type: ActionExpired})
	if cerr != nil {
		log.Warn().Err(cerr).Msg("clearing rejected credential")
	}
	return applied
}

// Token returns the stored credential for calls made by views.
func (s *Store) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.creds.Get(ctx)
	if err != nil {
		return "", false
	}
	return token, ok
}
