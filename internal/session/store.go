// AngelaMos | 2026
// store.go

package session

import (
	"sync"

	"github.com/civiclens/console-client/internal/identity"
)

// State is a snapshot of authentication truth.
// Invariant: Authenticated implies User != nil, and !Authenticated
// implies User == nil.
type State struct {
	Authenticated bool
	Loading       bool
	User          *identity.Principal
}

// Store is the single writer of authentication truth. Constructed once
// at application start and passed explicitly to everything that gates
// on it; the source's single event loop becomes last-writer-wins under
// one mutex here.
type Store struct {
	mu          sync.Mutex
	state       State
	epoch       uint64
	subscribers []func(State)
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epoch returns the current session epoch. It increases on every
// Logout, letting in-flight identity checks detect that their result
// is stale.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Subscribe registers a callback invoked after every state change.
// Callbacks run outside the store lock and must not block.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// SetAuthenticated installs the principal and ends any loading window.
// A nil principal degrades to Logout so the state invariant holds.
func (s *Store) SetAuthenticated(user *identity.Principal) {
	if user == nil {
		s.Logout()
		return
	}

	s.mu.Lock()
	s.state = State{Authenticated: true, Loading: false, User: user}
	state, subs := s.state, s.subscribers
	s.mu.Unlock()

	notify(subs, state)
}

// SetLoading raises or lowers the loading flag without touching
// authentication truth.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	state, subs := s.state, s.subscribers
	s.mu.Unlock()

	notify(subs, state)
}

// Logout resets to the unauthenticated terminal state and bumps the
// session epoch.
func (s *Store) Logout() {
	s.mu.Lock()
	s.state = State{}
	s.epoch++
	state, subs := s.state, s.subscribers
	s.mu.Unlock()

	notify(subs, state)
}

func notify(subs []func(State), state State) {
	for _, fn := range subs {
		fn(state)
	}
}
