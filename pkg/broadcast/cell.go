package broadcast

import "sync"

// Cell is a single-slot value store that replays its current value to every
// new subscriber and broadcasts every later value in publish order.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]*Subscription[T]
	nextID uint64
}

// NewCell creates a Cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value: initial,
		subs:  make(map[uint64]*Subscription[T]),
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and publishes it to every subscriber.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.publishLocked(v)
}

// Update atomically replaces the current value with fn(current) and
// publishes the result. fn runs under the cell lock and must not call back
// into the cell.
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = fn(c.value)
	c.publishLocked(c.value)
	return c.value
}

// Subscribe returns a subscription that first receives the current value.
func (c *Cell[T]) Subscribe() *Subscription[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := newSubscription[T]()
	id := c.nextID
	c.nextID++
	c.subs[id] = sub
	sub.detach = func() { c.remove(id) }
	sub.push(c.value)
	return sub
}

// Subscribers returns the number of live subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Cell[T]) publishLocked(v T) {
	for _, sub := range c.subs {
		sub.push(v)
	}
}

func (c *Cell[T]) remove(id uint64) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}
