package broadcast

import "sync"

// Signal is a broadcast channel without replay: a subscriber only sees
// values emitted after it subscribed.
type Signal[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
}

// NewSignal creates a Signal.
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{subs: make(map[uint64]*Subscription[T])}
}

// Emit publishes v to every current subscriber.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.push(v)
	}
}

// Subscribe returns a subscription receiving future emissions.
func (s *Signal[T]) Subscribe() *Subscription[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := newSubscription[T]()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	sub.detach = func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return sub
}

// Subscribers returns the number of live subscriptions.
func (s *Signal[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
