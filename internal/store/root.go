// Package store holds the client-side state container: a session slice and a
// post slice combined under one dispatch/subscribe surface.
//
// Reducers are pure. The Store serializes reductions so intents are applied
// strictly in dispatch order; listeners run after each reduction, outside the
// lock, and may dispatch.
package store

import (
	"sync"

	"snapfeed/internal/observability"
)

// Intent is a named request to transition state.
type Intent interface {
	Type() string
}

// Rehydrate replaces the session slice with a previously persisted one.
type Rehydrate struct {
	Session SessionState
}

func (Rehydrate) Type() string { return "persist/REHYDRATE" }

// RootState is the combined state tree.
type RootState struct {
	User     SessionState `json:"user"`
	UserPost PostState    `json:"userPost"`
}

// NewRootState returns the state every process starts from.
func NewRootState() RootState {
	return RootState{UserPost: NewPostState()}
}

// Change is delivered to listeners after every dispatch. Seq increases by one
// per reduction, so listeners running on different goroutines can order them.
type Change struct {
	Seq    uint64
	Intent string
	State  RootState
}

// Listener observes state changes.
type Listener func(Change)

// Option configures a Store.
type Option func(*Store)

// WithSessionReducer overrides the session reducer.
func WithSessionReducer(r SessionReducer) Option {
	return func(s *Store) { s.session = r }
}

// WithInitialState seeds the store, e.g. from a rehydrated snapshot.
func WithInitialState(state RootState) Option {
	return func(s *Store) { s.state = state }
}

type subscription struct {
	id       uint64
	listener Listener
}

// Store owns the state tree. The zero value is not usable; call New.
type Store struct {
	mu      sync.Mutex
	state   RootState
	seq     uint64
	session SessionReducer

	subMu  sync.RWMutex
	subs   []subscription
	nextID uint64

	logger *observability.StoreLogger
}

// New creates a store holding the initial state.
func New(opts ...Option) *Store {
	s := &Store{
		state:  NewRootState(),
		logger: observability.NewStoreLogger("root"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reduce applies intent to both slices, the way combineReducers does.
func (s *Store) Reduce(state RootState, intent Intent) RootState {
	if rh, ok := intent.(Rehydrate); ok {
		state.User = rh.Session
		return state
	}
	state.User = s.session.Reduce(state.User, intent)
	state.UserPost = ReducePosts(state.UserPost, intent)
	return state
}

// Dispatch reduces intent into the current state and notifies listeners.
func (s *Store) Dispatch(intent Intent) {
	if intent == nil {
		return
	}
	s.mu.Lock()
	s.state = s.Reduce(s.state, intent)
	s.seq++
	change := Change{Seq: s.seq, Intent: intent.Type(), State: s.state}
	s.mu.Unlock()

	observability.IntentsDispatched.WithLabelValues(intent.Type()).Inc()
	s.logger.LogDispatch(intent.Type(), change.Seq)

	s.subMu.RLock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.listener(change)
	}
}

// GetState returns the current snapshot. Collections are shared with the
// store and must be treated as read-only.
func (s *Store) GetState() RootState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seq returns the number of reductions applied so far.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, listener: l})
	n := len(s.subs)
	s.subMu.Unlock()
	observability.StoreSubscribers.Set(float64(n))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
			n := len(s.subs)
			s.subMu.Unlock()
			observability.StoreSubscribers.Set(float64(n))
		})
	}
}
