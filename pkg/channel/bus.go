package channel

import (
	"sync"

	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
)

// Bus fans inbound messages out by category.
type Bus struct {
	mu         sync.Mutex
	categories map[string]*broadcast.Signal[Message]
	all        *broadcast.Signal[Message]
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		categories: make(map[string]*broadcast.Signal[Message]),
		all:        broadcast.NewSignal[Message](),
	}
}

// Subscribe receives messages of one category.
func (b *Bus) Subscribe(category string) *broadcast.Subscription[Message] {
	return b.signal(category).Subscribe()
}

// SubscribeAll receives every message.
func (b *Bus) SubscribeAll() *broadcast.Subscription[Message] {
	return b.all.Subscribe()
}

// Publish delivers m to the subscribers of its category and to every
// SubscribeAll subscriber.
func (b *Bus) Publish(m Message) {
	b.mu.Lock()
	sig := b.categories[m.Meta.Category]
	b.mu.Unlock()

	if sig != nil {
		sig.Emit(m)
	}
	b.all.Emit(m)
}

func (b *Bus) signal(category string) *broadcast.Signal[Message] {
	b.mu.Lock()
	defer b.mu.Unlock()
	sig, ok := b.categories[category]
	if !ok {
		sig = broadcast.NewSignal[Message]()
		b.categories[category] = sig
	}
	return sig
}
