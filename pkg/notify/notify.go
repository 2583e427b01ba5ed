package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
)

// Variant is the severity of a notification.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
	VariantDanger  Variant = "danger"
)

// Status categories.
const (
	CategoryConnectionActivity = "connection-activity"
	CategoryTargetDiscovery    = "target-discovery"
)

// Notification is a single entry in the store.
type Notification struct {
	Key       string  `json:"key"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Category  string  `json:"category,omitempty"`
	Variant   Variant `json:"variant"`
	Timestamp int64   `json:"timestamp"`
	Read      bool    `json:"read"`
	Hidden    bool    `json:"hidden"`
}

// IsProblem reports whether n is a warning or danger.
func IsProblem(n Notification) bool {
	return n.Variant == VariantWarning || n.Variant == VariantDanger
}

// IsStatus reports whether n is a backend status notification.
func IsStatus(n Notification) bool {
	if IsProblem(n) {
		return false
	}
	return n.Category == CategoryConnectionActivity || n.Category == CategoryTargetDiscovery
}

// IsAction reports whether n is neither a problem nor a status.
func IsAction(n Notification) bool {
	return !IsProblem(n) && !IsStatus(n)
}

// Store is the notification log.
type Store struct {
	mu         sync.Mutex
	log        []Notification
	drawerOpen bool

	cell   *broadcast.Cell[[]Notification]
	drawer *broadcast.Cell[bool]

	now      func() time.Time
	newKey   func() string
	observer func(Notification)
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKeyFunc sets the key generator. Default: random UUIDs.
func WithKeyFunc(fn func() string) Option {
	return func(s *Store) { s.newKey = fn }
}

// WithObserver registers fn to be called for every stored notification.
func WithObserver(fn func(Notification)) Option {
	return func(s *Store) { s.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store with the drawer closed.
func New(opts ...Option) *Store {
	s := &Store{
		cell:   broadcast.NewCell[[]Notification](nil),
		drawer: broadcast.NewCell(false),
		now:    time.Now,
		newKey: func() string { return uuid.NewString() },
		logger: slog.Default().With("component", "notify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify stores n at the head of the log and returns the stored copy.
// Key and Timestamp are filled in when empty. Read is always reset. Hidden
// is forced on while the drawer is open.
func (s *Store) Notify(n Notification) Notification {
	s.mu.Lock()
	if n.Key == "" {
		n.Key = s.newKey()
	}
	if n.Timestamp == 0 {
		n.Timestamp = s.now().UnixMilli()
	}
	n.Read = false
	n.Hidden = n.Hidden || s.drawerOpen

	next := make([]Notification, len(s.log)+1)
	next[0] = n
	copy(next[1:], s.log)
	s.publishLocked(next)
	s.mu.Unlock()

	s.logger.Debug("notification stored",
		"key", n.Key,
		"variant", n.Variant,
		"category", n.Category)
	if s.observer != nil {
		s.observer(n)
	}
	return n
}

// Success stores a success notification.
func (s *Store) Success(title string, message any, category string, hidden bool) Notification {
	return s.add(VariantSuccess, title, message, category, hidden)
}

// Info stores an info notification.
func (s *Store) Info(title string, message any, category string, hidden bool) Notification {
	return s.add(VariantInfo, title, message, category, hidden)
}

// Warning stores a warning notification.
func (s *Store) Warning(title string, message any, category string, hidden bool) Notification {
	return s.add(VariantWarning, title, message, category, hidden)
}

// Danger stores a danger notification.
func (s *Store) Danger(title string, message any, category string, hidden bool) Notification {
	return s.add(VariantDanger, title, message, category, hidden)
}

func (s *Store) add(v Variant, title string, message any, category string, hidden bool) Notification {
	return s.Notify(Notification{
		Title:    title,
		Message:  Stringify(message),
		Category: category,
		Variant:  v,
		Hidden:   hidden,
	})
}

// Notifications returns the full log, newest first.
func (s *Store) Notifications() []Notification {
	return s.filter(func(Notification) bool { return true })
}

// Unread returns notifications not yet read.
func (s *Store) Unread() []Notification {
	return s.filter(func(n Notification) bool { return !n.Read })
}

// Actions returns action notifications.
func (s *Store) Actions() []Notification {
	return s.filter(IsAction)
}

// Status returns backend status notifications.
func (s *Store) Status() []Notification {
	return s.filter(IsStatus)
}

// Problems returns warnings and dangers.
func (s *Store) Problems() []Notification {
	return s.filter(IsProblem)
}

// SetRead sets the read flag of the notification with key.
func (s *Store) SetRead(key string, read bool) {
	s.mutate(func(n *Notification) bool {
		if n.Key != key || n.Read == read {
			return false
		}
		n.Read = read
		return true
	})
}

// SetHidden sets the hidden flag of the notification with key.
func (s *Store) SetHidden(key string, hidden bool) {
	s.mutate(func(n *Notification) bool {
		if n.Key != key || n.Hidden == hidden {
			return false
		}
		n.Hidden = hidden
		return true
	})
}

// MarkAllRead marks every notification read.
func (s *Store) MarkAllRead() {
	s.mutate(func(n *Notification) bool {
		if n.Read {
			return false
		}
		n.Read = true
		return true
	})
}

// ClearAll empties the log.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(nil)
}

// DrawerOpen reports whether the drawer is open.
func (s *Store) DrawerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawerOpen
}

// SetDrawerState records the drawer state. Opening it hides every held
// notification in a single publish.
func (s *Store) SetDrawerState(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if open == s.drawerOpen {
		return
	}
	s.drawerOpen = open
	if open {
		next := make([]Notification, len(s.log))
		for i, n := range s.log {
			n.Hidden = true
			next[i] = n
		}
		s.publishLocked(next)
	}
	s.drawer.Set(open)
}

// Subscribe returns a subscription replaying the current log and then every
// updated log. Delivered slices must not be modified.
func (s *Store) Subscribe() *broadcast.Subscription[[]Notification] {
	return s.cell.Subscribe()
}

// SubscribeDrawer returns a subscription to the drawer state.
func (s *Store) SubscribeDrawer() *broadcast.Subscription[bool] {
	return s.drawer.Subscribe()
}

func (s *Store) filter(keep func(Notification) bool) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, 0, len(s.log))
	for _, n := range s.log {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// mutate applies fn to a copy of every entry and publishes if any changed.
func (s *Store) mutate(fn func(*Notification) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Notification, len(s.log))
	changed := false
	for i, n := range s.log {
		if fn(&n) {
			changed = true
		}
		next[i] = n
	}
	if changed {
		s.publishLocked(next)
	}
}

// publishLocked replaces the log. The slice is never modified afterwards.
func (s *Store) publishLocked(next []Notification) {
	s.log = next
	s.cell.Set(next)
}

// Stringify renders a notification message. Strings pass through. Errors
// become a JSON object of their exported fields plus "message" and, when
// wrapping another error, "cause". Everything else is JSON encoded.
func Stringify(message any) string {
	switch m := message.(type) {
	case nil:
		return ""
	case string:
		return m
	case json.RawMessage:
		return string(m)
	case error:
		raw, err := json.Marshal(errorFields(m))
		if err != nil {
			return m.Error()
		}
		return string(raw)
	}
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Sprint(message)
	}
	return string(raw)
}

func errorFields(err error) map[string]any {
	out := make(map[string]any)
	if raw, e := json.Marshal(err); e == nil {
		var fields map[string]any
		if json.Unmarshal(raw, &fields) == nil {
			for k, v := range fields {
				out[k] = v
			}
		}
	}
	out["message"] = err.Error()
	if cause := errors.Unwrap(err); cause != nil {
		out["cause"] = errorFields(cause)
	}
	return out
}
