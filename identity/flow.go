package identity

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/users"
)

// FlowState is kept between the redirect to the provider and the callback.
type FlowState struct {
	BrowserID    string
	CodeVerifier string
	Nonce        string
	Role         users.Role // Account type requested on sign up, may be empty
	ReturnURL    string
	CreatedAt    time.Time
}

type FlowRepo interface {
	Upsert(state string, flow *FlowState) error
	Get(state string) (*FlowState, error)
	Delete(state string) error
	DeleteExpired(before time.Time) int
}

// InMemoryFlowRepo is a thread-safe in-memory implementation of FlowRepo
type InMemoryFlowRepo struct {
	mu     sync.RWMutex
	states map[string]FlowState
}

var _ FlowRepo = (*InMemoryFlowRepo)(nil)

func NewInMemoryFlowRepo() *InMemoryFlowRepo {
	return &InMemoryFlowRepo{
		states: make(map[string]FlowState),
	}
}

func (r *InMemoryFlowRepo) Upsert(state string, flow *FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state] = *flow
	return nil
}

func (r *InMemoryFlowRepo) Get(state string) (*FlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, exists := r.states[state]
	if !exists {
		return nil, apperrors.ErrStateNotFound
	}
	return &flow, nil
}

func (r *InMemoryFlowRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

// DeleteExpired removes flows created before the cutoff and returns how many went.
func (r *InMemoryFlowRepo) DeleteExpired(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, flow := range r.states {
		if flow.CreatedAt.Before(before) {
			delete(r.states, state)
			removed++
		}
	}
	return removed
}
