package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/lingo-web/apiclient"
	"github.com/jrsteele09/lingo-web/users"
	"github.com/pkg/errors"
)

// ErrSuperseded is returned by an operation whose result arrived after a logout.
var ErrSuperseded = errors.New("superseded by logout")

// AuthAPI is the part of the backend the session needs.
type AuthAPI interface {
	Login(ctx context.Context, req users.LoginRequest) (apiclient.AuthResult, error)
	Register(ctx context.Context, req users.RegisterRequest) (apiclient.AuthResult, error)
	GoogleAuth(ctx context.Context, credential string, role users.Role) (apiclient.AuthResult, error)
	CurrentUser(ctx context.Context, token string) (*users.User, error)
	Logout(ctx context.Context, token string) error
}

// Credentials persists the bearer token (see tokenstore.Store).
type Credentials interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Store holds one browser's State. It is safe for concurrent use; overlapping
// requests are not fenced against each other, so the response that resolves
// last wins. A logout discards every result from requests started before it.
type Store struct {
	api   AuthAPI
	creds Credentials
	now   func() time.Time

	mu          sync.Mutex
	state       State
	epoch       uint64
	subscribers map[int]func(State)
	nextSubID   int
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = nowFunc
	}
}

func NewStore(api AuthAPI, creds Credentials, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[session NewStore] api is required")
	}
	if creds == nil {
		return nil, errors.New("[session NewStore] credentials are required")
	}
	s := &Store{
		api:         api,
		creds:       creds,
		now:         time.Now,
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Dispatch applies a unconditionally.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	st, subs := s.applyLocked(a)
	s.mu.Unlock()
	notify(subs, st)
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// transition applies a only if no logout happened since epoch was read.
// effect runs first under the same lock; when it fails nothing is applied.
func (s *Store) transition(epoch uint64, effect func() error, a Action) (bool, error) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false, nil
	}
	if effect != nil {
		if err := effect(); err != nil {
			s.mu.Unlock()
			return false, err
		}
	}
	st, subs := s.applyLocked(a)
	s.mu.Unlock()

	notify(subs, st)
	return true, nil
}

// Epoch identifies the sign-in the session is on; every logout starts a new
// one. Capture it before a request and hand it to HandleError.
func (s *Store) Epoch() uint64 {
	return s.currentEpoch()
}

// reset starts a new epoch, clears the credential and applies a.
// It returns the credential that was stored, if any.
func (s *Store) reset(ctx context.Context, a Action) (string, error) {
	s.mu.Lock()
	token, st, subs, clearErr := s.resetLocked(ctx, a)
	s.mu.Unlock()

	notify(subs, st)
	return token, clearErr
}

// resetFrom is reset for a result of a request started at epoch. It does
// nothing when a logout already happened since.
func (s *Store) resetFrom(ctx context.Context, epoch uint64, a Action) (bool, error) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false, nil
	}
	_, st, subs, clearErr := s.resetLocked(ctx, a)
	s.mu.Unlock()

	notify(subs, st)
	return true, clearErr
}

func (s *Store) resetLocked(ctx context.Context, a Action) (string, State, []func(State), error) {
	s.epoch++
	token, _, _ := s.creds.Get(ctx)
	clearErr := s.creds.Clear(ctx)
	st, subs := s.applyLocked(a)
	return token, st, subs, clearErr
}

func (s *Store) applyLocked(a Action) (State, []func(State)) {
	s.state = Reduce(s.state, a)
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return s.state.clone(), subs
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st.clone())
	}
}
