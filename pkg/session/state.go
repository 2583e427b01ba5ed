package session

import (
	"sync"
	"time"

	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
)

// Value is the backend session state.
type Value int

const (
	// NoSession means no backend session exists.
	NoSession Value = iota
	// CreatingSession means credentials were accepted and the push channel
	// should connect.
	CreatingSession
	// ActiveSession means the push channel is open.
	ActiveSession
)

// String returns the state name.
func (v Value) String() string {
	switch v {
	case NoSession:
		return "NoSession"
	case CreatingSession:
		return "CreatingSession"
	case ActiveSession:
		return "ActiveSession"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// State is the session state cell.
type State struct {
	mu      sync.Mutex
	current Value
	window  time.Duration
	timer   *time.Timer
	cell    *broadcast.Cell[Value]
}

// NewState creates a State starting at NoSession. A zero window delivers
// every transition immediately.
func NewState(window time.Duration) *State {
	return &State{
		current: NoSession,
		window:  window,
		cell:    broadcast.NewCell(NoSession),
	}
}

// Get returns the most recently set value, including one still inside the
// debounce window.
func (s *State) Get() Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set moves the session to v. Re-entering the current state does nothing.
func (s *State) Set(v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v == s.current {
		return
	}
	s.current = v

	if s.window <= 0 {
		s.cell.Set(v)
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, s.flush)
}

// Subscribe returns a subscription that first receives the last delivered
// value and then every delivered transition.
func (s *State) Subscribe() *broadcast.Subscription[Value] {
	return s.cell.Subscribe()
}

// Delivered returns the last value published to subscribers.
func (s *State) Delivered() Value {
	return s.cell.Get()
}

// flush publishes the settled value if it differs from the last delivery.
func (s *State) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer = nil
	if s.cell.Get() != s.current {
		s.cell.Set(s.current)
	}
}
