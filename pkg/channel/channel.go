package channel

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	consoleerrors "github.com/cryostatio/cryostat-sub001/internal/errors"
	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
	"github.com/cryostatio/cryostat-sub001/pkg/middleware"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
	"github.com/cryostatio/cryostat-sub001/pkg/session"
)

// DefaultReconnectInterval is the reconnect tick.
const DefaultReconnectInterval = 5 * time.Second

// ConnectMessage is the first frame sent after open. The backend uses it to
// bind the subprotocol credential to the connection.
const ConnectMessage = "connect"

// Title of every disconnect notification.
const DisconnectTitle = "WebSocket connection lost"

// Resolver looks up the notifications URL.
type Resolver interface {
	NotificationsURL(ctx context.Context) (string, error)
}

// Credentials is the view of the auth gateway the channel needs.
type Credentials interface {
	Method() auth.Method
	Token() string
	TokenVersion() uint64
	SubscribeMethod() *broadcast.Subscription[auth.Method]
	SubscribeTokenVersion() *broadcast.Subscription[uint64]
	LoggedOut() *broadcast.Subscription[struct{}]
}

// Channel is the push-notification client.
type Channel struct {
	resolver Resolver
	creds    Credentials
	state    *session.State
	notes    *notify.Store
	bus      *Bus

	dialer   websocket.Dialer
	interval time.Duration
	metrics  *middleware.Metrics
	logger   *slog.Logger

	conn   *broadcast.Cell[ConnectionState]
	events chan event
	cmds   chan chan struct{}
}

// Option configures a Channel.
type Option func(*Channel)

// WithReconnectInterval sets the reconnect tick. Default: 5s.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithHandshakeTimeout bounds the WebSocket handshake. Zero means no
// timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Channel) { c.dialer.HandshakeTimeout = d }
}

// WithDialer sets the base dialer. Subprotocols are always overwritten.
func WithDialer(d websocket.Dialer) Option {
	return func(c *Channel) {
		timeout := c.dialer.HandshakeTimeout
		c.dialer = d
		if c.dialer.HandshakeTimeout == 0 {
			c.dialer.HandshakeTimeout = timeout
		}
	}
}

// WithBus sets the message bus. Default: a new Bus.
func WithBus(b *Bus) Option {
	return func(c *Channel) { c.bus = b }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *middleware.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// New creates a Channel. Nothing happens until Run is called.
func New(resolver Resolver, creds Credentials, state *session.State, notes *notify.Store, opts ...Option) *Channel {
	c := &Channel{
		resolver: resolver,
		creds:    creds,
		state:    state,
		notes:    notes,
		dialer:   websocket.Dialer{Proxy: http.ProxyFromEnvironment},
		interval: DefaultReconnectInterval,
		logger:   slog.Default().With("component", "channel"),
		conn:     broadcast.NewCell(ConnectionState{}),
		events:   make(chan event, 64),
		cmds:     make(chan chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = NewBus()
	}
	return c
}

// Bus returns the inbound message bus.
func (c *Channel) Bus() *Bus {
	return c.bus
}

// State returns the current connection state.
func (c *Channel) State() ConnectionState {
	return c.conn.Get()
}

// SubscribeState replays the connection state and then every change.
func (c *Channel) SubscribeState() *broadcast.Subscription[ConnectionState] {
	return c.conn.Subscribe()
}

// Terminate closes the live socket without waiting for the server and
// without a notification. It returns once the socket is closed, or when ctx
// is done or the channel is not running.
func (c *Channel) Terminate(ctx context.Context) {
	done := make(chan struct{})
	select {
	case c.cmds <- done:
		select {
		case <-done:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}
}

// Run drives the channel until ctx is done. Messages are dispatched to the
// notification store while it runs.
func (c *Channel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// subscribed before the loop can publish a frame
	inbound := c.bus.SubscribeAll()
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		NewDispatcher(c.bus, c.notes, c.logger).Serve(ctx, inbound)
	}()

	l := newLoop(c)
	l.run(ctx)

	<-dispatched
	return nil
}

// combo is the input tuple the loop gates connection attempts on.
type combo struct {
	url     string
	version uint64
	method  auth.Method
	session session.Value
	tick    uint64
}

type event interface{}

type lookupDone struct {
	url string
	err error
}

type dialDone struct {
	gen  uint64
	conn *websocket.Conn
	err  error
}

type frame struct {
	gen  uint64
	data []byte
}

type closed struct {
	gen  uint64
	code CloseCode
	err  error
}

// loop owns all connection state. Only run touches its fields.
type loop struct {
	c *Channel

	cur      combo
	applied  *combo
	looking  bool
	gen      uint64
	live     *websocket.Conn
	phase    Phase
	lastCode CloseCode
}

func newLoop(c *Channel) *loop {
	l := &loop{c: c}
	l.refresh()
	return l
}

func (l *loop) run(ctx context.Context) {
	sessions := l.c.state.Subscribe()
	defer sessions.Close()
	methods := l.c.creds.SubscribeMethod()
	defer methods.Close()
	versions := l.c.creds.SubscribeTokenVersion()
	defer versions.Close()
	logouts := l.c.creds.LoggedOut()
	defer logouts.Close()

	ticker := time.NewTicker(l.c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.terminate()
			return

		// the streams only wake the loop; evaluate reads the live values
		case <-sessions.C():
			l.evaluate(ctx)

		case <-methods.C():
			l.evaluate(ctx)

		case <-versions.C():
			l.evaluate(ctx)

		case <-logouts.C():
			l.c.logger.Info("logout observed, terminating socket")
			l.terminate()

		case done := <-l.c.cmds:
			l.terminate()
			close(done)

		case <-ticker.C:
			l.cur.tick++
			l.evaluate(ctx)

		case ev := <-l.c.events:
			l.handle(ctx, ev)
		}
	}
}

// evaluate starts a connection attempt when the session is being created
// and the input tuple differs from the last one acted on.
func (l *loop) evaluate(ctx context.Context) {
	l.refresh()
	if l.cur.session != session.CreatingSession || !l.cur.method.Known() {
		return
	}
	if l.cur.url == "" {
		l.lookup(ctx)
		return
	}
	if l.applied != nil && *l.applied == l.cur {
		return
	}
	// a tick alone does not restart a pending dial
	if l.phase == Connecting && l.applied != nil {
		pending := *l.applied
		pending.tick = l.cur.tick
		if pending == l.cur {
			return
		}
	}
	applied := l.cur
	l.applied = &applied
	l.connect(ctx)
}

// refresh reads the current inputs. A credential check bumps the token
// version before it moves the session, so both are seen together.
func (l *loop) refresh() {
	l.cur.version = l.c.creds.TokenVersion()
	l.cur.method = l.c.creds.Method()
	l.cur.session = l.c.state.Delivered()
}

func (l *loop) lookup(ctx context.Context) {
	if l.looking {
		return
	}
	l.looking = true
	go func() {
		url, err := l.c.resolver.NotificationsURL(ctx)
		l.post(ctx, lookupDone{url: url, err: err})
	}()
}

func (l *loop) connect(ctx context.Context) {
	l.drop()

	l.gen++
	gen := l.gen
	l.phase = Connecting
	l.publish(false)

	dialer := l.c.dialer
	dialer.Subprotocols = nil
	if p := Subprotocol(l.cur.method, l.c.creds.Token()); p != "" {
		dialer.Subprotocols = []string{p}
	}
	url := l.cur.url

	l.c.metrics.RecordConnectAttempt()
	l.c.logger.Debug("connecting", "url", url, "attempt", gen)
	go func() {
		conn, resp, err := dialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		l.post(ctx, dialDone{gen: gen, conn: conn, err: err})
	}()
}

// drop closes the live socket silently and invalidates any attempt in
// flight. It reports whether there was anything to drop.
func (l *loop) drop() bool {
	active := l.live != nil || l.phase == Connecting
	if l.live != nil {
		closeQuietly(l.live)
		l.live = nil
		l.c.metrics.RecordClientClose()
	}
	if active {
		l.gen++
	}
	return active
}

// terminate drops the socket and forgets the last applied inputs so the
// next session starts a fresh attempt.
func (l *loop) terminate() {
	l.applied = nil
	if l.drop() {
		l.phase = Disconnected
		l.publish(false)
	}
}

func (l *loop) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case lookupDone:
		l.looking = false
		if e.err != nil {
			l.c.logger.Warn("notifications URL lookup failed", "error", e.err)
			l.c.notes.Danger(DisconnectTitle, consoleerrors.New("E300").Wrap(e.err), "", false)
			return
		}
		l.cur.url = e.url
		l.evaluate(ctx)

	case dialDone:
		if e.gen != l.gen {
			closeQuietly(e.conn)
			return
		}
		if e.err != nil {
			l.c.logger.Warn("websocket dial failed", "error", e.err)
			l.closedBy(Unknown, false)
			return
		}
		l.open(ctx, e.gen, e.conn)

	case frame:
		if e.gen != l.gen {
			return
		}
		l.receive(e.data)

	case closed:
		if e.gen != l.gen || l.live == nil {
			return
		}
		_ = l.live.Close()
		l.live = nil
		l.c.logger.Info("websocket closed by server", "code", e.code, "error", e.err)
		l.closedBy(e.code, true)
	}
}

func (l *loop) open(ctx context.Context, gen uint64, conn *websocket.Conn) {
	l.live = conn
	l.phase = Connected
	l.lastCode = CloseNone
	l.publish(true)
	l.c.metrics.RecordOpen()
	l.c.state.Set(session.ActiveSession)
	l.c.logger.Info("websocket connected", "subprotocol", conn.Subprotocol() != "")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(ConnectMessage)); err != nil {
		l.c.logger.Warn("sending connect message", "error", err)
	}

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				l.post(ctx, closed{gen: gen, code: classify(err), err: err})
				return
			}
			l.post(ctx, frame{gen: gen, data: data})
		}
	}()
}

func (l *loop) receive(data []byte) {
	m, err := DecodeMessage(data)
	if err != nil {
		l.c.logger.Warn("malformed push frame", "error", err)
		l.c.notes.Danger("Malformed notification", consoleerrors.New("E302").Wrap(err), "", false)
		return
	}
	l.c.metrics.RecordFrame(m.Meta.Category)
	l.c.bus.Publish(m)
}

// closedBy records a close the client did not initiate and moves the
// session accordingly.
func (l *loop) closedBy(code CloseCode, live bool) {
	l.phase = Disconnected
	l.lastCode = code
	l.publish(false)
	l.c.metrics.RecordClose(int(code), live)

	switch code {
	case LoggedOut:
		l.c.notes.Info(DisconnectTitle, "Logout success", "", true)
		l.c.state.Set(session.NoSession)
	case ProtocolFailure:
		l.c.notes.Danger(DisconnectTitle, "Authentication failed", "", false)
		l.c.state.Set(session.NoSession)
	case InternalError:
		l.c.notes.Danger(DisconnectTitle, "Internal server error", "", false)
		l.c.state.Set(session.CreatingSession)
	default:
		l.c.notes.Danger(DisconnectTitle, "Connection failure", "", false)
		l.c.state.Set(session.CreatingSession)
	}
}

func (l *loop) publish(ready bool) {
	l.c.conn.Set(ConnectionState{Ready: ready, Code: l.lastCode, Phase: l.phase})
}

// post hands ev to the loop unless ctx is done.
func (l *loop) post(ctx context.Context, ev event) {
	select {
	case l.c.events <- ev:
	case <-ctx.Done():
	}
}
