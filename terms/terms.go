// Package terms implements the blocking acknowledgement of the current terms
// of service and privacy policy.
package terms

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/session"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Recorder durably stores an acknowledgement on the backend.
type Recorder interface {
	AcceptTerms(ctx context.Context, token string) (*users.User, error)
}

// Session is the part of session.Store the gate drives.
type Session interface {
	Snapshot() session.State
	SetUser(user *users.User)
	Token(ctx context.Context) (string, bool)
	GetCurrentUser(ctx context.Context) (*users.User, error)
	Epoch() uint64
	HandleError(ctx context.Context, epoch uint64, err error) bool
}

var ErrNotSignedIn = errors.New("terms can only be accepted by a signed in user")

type Gate struct {
	recorder Recorder
	now      func() time.Time
	wg       sync.WaitGroup
}

// GateOption defines a function type to modify the Gate instance.
type GateOption func(*Gate)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = nowFunc
	}
}

func NewGate(recorder Recorder, options ...GateOption) *Gate {
	g := &Gate{
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Required reports whether user must pass the gate before seeing any page.
func Required(user *users.User) bool {
	return user.NeedsAcceptance()
}

// Accept patches the session optimistically and returns without waiting for
// the backend. The backend write happens in the background; if it fails the
// gate re-fetches the current user so the browser converges on what the
// backend actually stored.
func (g *Gate) Accept(ctx context.Context, s Session) error {
	current := s.Snapshot()
	if !current.IsAuthenticated || current.User == nil {
		return ErrNotSignedIn
	}
	epoch := s.Epoch()
	token, ok := s.Token(ctx)
	if !ok {
		return ErrNotSignedIn
	}

	now := g.now().UTC()
	patched := current.User.Clone()
	patched.TermsAccepted = true
	patched.PrivacyAccepted = true
	patched.TermsAcceptedAt = &now
	patched.PrivacyAcceptedAt = &now
	s.SetUser(patched)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.record(context.WithoutCancel(ctx), s, epoch, token)
	}()
	return nil
}

// record writes the acknowledgement made during epoch. A failure that
// arrives after the user signed out is only logged.
func (g *Gate) record(ctx context.Context, s Session, epoch uint64, token string) {
	if _, err := g.recorder.AcceptTerms(ctx, token); err != nil {
		log.Warn().Err(err).Msg("recording terms acceptance failed, reconciling with backend")
		if s.HandleError(ctx, epoch, err) || s.Epoch() != epoch {
			return
		}
		if _, rerr := s.GetCurrentUser(ctx); rerr != nil && !apperrors.IsKind(rerr, apperrors.KindAuth) {
			log.Warn().Err(rerr).Msg("terms reconciliation failed")
		}
		return
	}
	log.Debug().Msg("terms acceptance recorded")
}

// Wait blocks until every background write has finished. Used on shutdown and in tests.
func (g *Gate) Wait() {
	g.wg.Wait()
}
