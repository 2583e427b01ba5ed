// Package backendtest provides a fake console backend for tests. It serves
// the auth, logout and notifications_url endpoints and the push socket.
package backendtest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Paths served by the backend.
const (
	AuthPath             = "/api/v2.1/auth"
	LogoutPath           = "/api/v2.1/logout"
	LogoutCompletePath   = "/api/v2.1/logout/complete"
	NotificationsURLPath = "/api/v1/notifications_url"
	NotificationsPath    = "/api/notifications"
)

// Peer is a server-side push socket.
type Peer struct {
	Conn        *websocket.Conn
	Subprotocol string
	// First is the first text frame the client sent.
	First string

	mu sync.Mutex
}

// Send writes v as a JSON text frame.
func (p *Peer) Send(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.WriteJSON(v)
}

// SendRaw writes a text frame.
func (p *Peer) SendRaw(data string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// Close sends a close frame with code and closes the connection.
func (p *Peer) Close(code int, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, text)
	_ = p.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = p.Conn.Close()
}

// Backend is a fake backend running on an httptest server.
type Backend struct {
	Server *httptest.Server
	router chi.Router

	mu             sync.Mutex
	method         string
	users          map[string]string
	authRedirect   string
	logoutRedirect bool
	failLookups    int
	authCalls      int
	authHeaders    []string
	logoutCalls    int
	lookups        int
	connects       int
	open           int

	peers    chan *Peer
	upgrader websocket.Upgrader
}

// New starts a backend requiring Basic auth. It is closed when the test
// ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		method: "Basic",
		users:  make(map[string]string),
		peers:  make(chan *Peer, 16),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(AuthPath, b.handleAuth)
	r.Post(LogoutPath, b.handleLogout)
	r.Post(LogoutCompletePath, b.handleLogoutComplete)
	r.Get(NotificationsURLPath, b.handleNotificationsURL)
	r.Get(NotificationsPath, b.handleSocket)
	b.router = r

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() *url.URL {
	u, _ := url.Parse(b.Server.URL)
	return u
}

// Handle registers an extra route. It must be called before the route is
// requested.
func (b *Backend) Handle(method, pattern string, h http.HandlerFunc) {
	b.router.MethodFunc(method, pattern, h)
}

// SetMethod sets the method named in X-WWW-Authenticate.
func (b *Backend) SetMethod(m string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.method = m
}

// AddUser accepts raw (e.g. "user:pass") for username. The client is
// expected to send it base64url encoded.
func (b *Backend) AddUser(username, raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[base64.RawURLEncoding.EncodeToString([]byte(raw))] = username
}

// SetAuthRedirect makes the auth endpoint answer 302 with X-Location loc.
func (b *Backend) SetAuthRedirect(loc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authRedirect = loc
}

// SetLogoutRedirect makes logout answer 302 pointing at LogoutCompletePath.
func (b *Backend) SetLogoutRedirect(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutRedirect = on
}

// FailLookups makes the next n notifications_url lookups fail.
func (b *Backend) FailLookups(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failLookups = n
}

// AuthCalls returns the number of auth requests.
func (b *Backend) AuthCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authCalls
}

// AuthHeaders returns the Authorization header of every auth request.
func (b *Backend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

// LogoutCalls returns the number of logout requests, redirects included.
func (b *Backend) LogoutCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logoutCalls
}

// Lookups returns the number of notifications_url requests.
func (b *Backend) Lookups() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookups
}

// Connects returns the number of accepted push sockets.
func (b *Backend) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

// OpenSockets returns the number of push sockets not yet closed by either
// side.
func (b *Backend) OpenSockets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Peers delivers every accepted push socket once its first frame arrived.
func (b *Backend) Peers() <-chan *Peer {
	return b.peers
}

// WaitPeer returns the next accepted socket or fails the test.
func (b *Backend) WaitPeer(t testing.TB) *Peer {
	t.Helper()
	select {
	case p := <-b.peers:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no push socket connected")
		return nil
	}
}

func (b *Backend) handleAuth(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.authCalls++
	b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
	method := b.method
	redirect := b.authRedirect
	b.mu.Unlock()

	w.Header().Set("X-WWW-Authenticate", method)
	if redirect != "" {
		w.Header().Set("X-Location", redirect)
		w.WriteHeader(http.StatusFound)
		return
	}

	username, ok := b.authorize(method, r.Header.Get("Authorization"))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"meta": map[string]any{"status": "Unauthorized"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta": map[string]any{"status": "OK", "type": "application/json"},
		"data": map[string]any{"result": map[string]any{"username": username}},
	})
}

func (b *Backend) authorize(method, header string) (string, bool) {
	if method == "None" {
		return "", true
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, method) {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	username, ok := b.users[token]
	return username, ok
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.logoutCalls++
	redirect := b.logoutRedirect
	b.mu.Unlock()

	if redirect {
		w.Header().Set("X-Location", LogoutCompletePath)
		w.WriteHeader(http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleLogoutComplete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.logoutCalls++
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleNotificationsURL(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.lookups++
	fail := b.failLookups > 0
	if fail {
		b.failLookups--
	}
	b.mu.Unlock()

	if fail {
		http.Error(w, "lookup unavailable", http.StatusInternalServerError)
		return
	}
	wsURL := "ws" + strings.TrimPrefix(b.Server.URL, "http") + NotificationsPath
	writeJSON(w, http.StatusOK, map[string]string{"notificationsUrl": wsURL})
}

func (b *Backend) handleSocket(w http.ResponseWriter, r *http.Request) {
	var header http.Header
	protocols := websocket.Subprotocols(r)
	if len(protocols) > 0 {
		header = http.Header{"Sec-Websocket-Protocol": {protocols[0]}}
	}
	conn, err := b.upgrader.Upgrade(w, r, header)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.connects++
	b.open++
	b.mu.Unlock()

	peer := &Peer{Conn: conn}
	if len(protocols) > 0 {
		peer.Subprotocol = protocols[0]
	}

	go func() {
		defer func() {
			b.mu.Lock()
			b.open--
			b.mu.Unlock()
		}()
		announced := false
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !announced {
					b.peers <- peer
				}
				return
			}
			if !announced {
				peer.First = string(data)
				announced = true
				b.peers <- peer
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
