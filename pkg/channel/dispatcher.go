package channel

import (
	"context"
	"log/slog"

	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
)

// Dispatcher renders every bus message into the notification store.
type Dispatcher struct {
	bus    *Bus
	notes  *notify.Store
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher from bus to notes.
func NewDispatcher(bus *Bus, notes *notify.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{bus: bus, notes: notes, logger: logger}
}

// Run dispatches until ctx is done. Messages are stored in arrival order.
// Messages published before Run subscribes are not seen; use Serve with an
// earlier subscription when that matters.
func (d *Dispatcher) Run(ctx context.Context) {
	d.Serve(ctx, d.bus.SubscribeAll())
}

// Serve dispatches the messages of sub until ctx is done, then closes sub.
func (d *Dispatcher) Serve(ctx context.Context, sub *broadcast.Subscription[Message]) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.C():
			if !ok {
				return
			}
			d.Dispatch(m)
		}
	}
}

// Dispatch renders a single message.
func (d *Dispatcher) Dispatch(m Message) notify.Notification {
	if _, known := Categories[m.Meta.Category]; !known {
		d.logger.Debug("unrecognized push category", "category", m.Meta.Category)
	}
	return d.notes.Notify(Render(m))
}
