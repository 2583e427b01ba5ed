package broadcast

import "sync"

// Subscription receives values published to a Cell or Signal.
// It must be closed when no longer needed.
type Subscription[T any] struct {
	ch     chan T
	mu     sync.Mutex
	queue  []T
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	detach func()
}

func newSubscription[T any]() *Subscription[T] {
	s := &Subscription[T]{
		ch:   make(chan T),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.pump()
	return s
}

// C returns the channel values are delivered on. It is closed after Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close stops delivery and detaches the subscription from its source.
// Undelivered values are dropped. Close is idempotent.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		close(s.done)
	})
}

// push enqueues v without blocking.
func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued values onto the delivery channel in order.
func (s *Subscription[T]) pump() {
	defer close(s.ch)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		v := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- v:
		case <-s.done:
			return
		}
	}
}
