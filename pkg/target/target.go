package target

import (
	"strings"
	"sync"

	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
)

// Target identifies a monitored JVM.
type Target struct {
	ConnectURL string            `json:"connectUrl"`
	Alias      string            `json:"alias,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// IsZero reports whether no target is described.
func (t Target) IsZero() bool {
	return t.ConnectURL == ""
}

// AuthFailure describes a 427 response for a target.
type AuthFailure struct {
	Target string
	// Scheme is the value of X-JMX-Authenticate, usually "Basic".
	Scheme string
}

// SSLFailure describes a 502 response for a target.
type SSLFailure struct {
	Target string
}

// Credential is a JMX username/password pair.
type Credential struct {
	Username string
	Password string
}

// Link holds the per-target signals, the selected target and JMX credentials.
type Link struct {
	authFailure *broadcast.Signal[AuthFailure]
	authRetry   *broadcast.Signal[struct{}]
	sslFailure  *broadcast.Signal[SSLFailure]
	selected    *broadcast.Cell[Target]

	mu    sync.RWMutex
	creds map[string]Credential
}

// New creates a Link with no target selected.
func New() *Link {
	return &Link{
		authFailure: broadcast.NewSignal[AuthFailure](),
		authRetry:   broadcast.NewSignal[struct{}](),
		sslFailure:  broadcast.NewSignal[SSLFailure](),
		selected:    broadcast.NewCell(Target{}),
		creds:       make(map[string]Credential),
	}
}

// AuthFailure subscribes to JMX authentication failures.
func (l *Link) AuthFailure() *broadcast.Subscription[AuthFailure] {
	return l.authFailure.Subscribe()
}

// SetAuthFailure raises a JMX authentication failure.
func (l *Link) SetAuthFailure(f AuthFailure) {
	l.authFailure.Emit(f)
}

// AuthRetry subscribes to retry requests.
func (l *Link) AuthRetry() *broadcast.Subscription[struct{}] {
	return l.authRetry.Subscribe()
}

// SetAuthRetry asks subscribers to retry the failed request.
func (l *Link) SetAuthRetry() {
	l.authRetry.Emit(struct{}{})
}

// SSLFailure subscribes to SSL trust failures.
func (l *Link) SSLFailure() *broadcast.Subscription[SSLFailure] {
	return l.sslFailure.Subscribe()
}

// SetSSLFailure raises an SSL trust failure.
func (l *Link) SetSSLFailure(f SSLFailure) {
	l.sslFailure.Emit(f)
}

// Select makes t the current target. A zero Target clears the selection.
func (l *Link) Select(t Target) {
	l.selected.Set(t)
}

// Selected returns the current target.
func (l *Link) Selected() Target {
	return l.selected.Get()
}

// SubscribeSelected replays the current target and then every change.
func (l *Link) SubscribeSelected() *broadcast.Subscription[Target] {
	return l.selected.Subscribe()
}

// StoreCredential remembers JMX credentials for connectURL for the lifetime
// of the Link.
func (l *Link) StoreCredential(connectURL, username, password string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creds[normalize(connectURL)] = Credential{Username: username, Password: password}
}

// Credential returns the stored credentials for connectURL.
func (l *Link) Credential(connectURL string) (Credential, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.creds[normalize(connectURL)]
	return c, ok
}

// DeleteCredential forgets credentials for connectURL.
func (l *Link) DeleteCredential(connectURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.creds, normalize(connectURL))
}

func normalize(connectURL string) string {
	return strings.TrimSpace(connectURL)
}
