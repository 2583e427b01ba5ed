package console

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cryostatio/cryostat-sub001/internal/config"
	"github.com/cryostatio/cryostat-sub001/pkg/api"
	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/channel"
	"github.com/cryostatio/cryostat-sub001/pkg/middleware"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
	"github.com/cryostatio/cryostat-sub001/pkg/session"
	"github.com/cryostatio/cryostat-sub001/pkg/target"
)

// Console owns one instance of every component.
type Console struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *middleware.Metrics

	state   *session.State
	notes   *notify.Store
	link    *target.Link
	gateway *auth.Gateway
	client  *api.Client
	channel *channel.Channel

	creds  session.Store
	stores []session.Store

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type options struct {
	logger    *slog.Logger
	registry  *prometheus.Registry
	navigator auth.Navigator
}

// Option configures a Console.
type Option func(*options)

// WithLogger sets the root logger. Components log with a "component"
// attribute.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the Prometheus registry. Default: a new registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithNavigator sets the navigator used for redirects and the OAuth
// fragment.
func WithNavigator(n auth.Navigator) Option {
	return func(o *options) { o.navigator = n }
}

// New builds a console from cfg. Nothing talks to the backend until Start
// or Login.
func New(cfg *config.Config, opts ...Option) (*Console, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	c := &Console{
		cfg:      cfg,
		logger:   o.logger.With("component", "console"),
		registry: o.registry,
		metrics:  middleware.NewMetrics(middleware.WithRegistry(o.registry)),
	}

	methods := session.NewMemoryStore()
	c.stores = append(c.stores, methods)
	var creds session.Store = methods
	if cfg.Credentials.Path != "" {
		bolt, err := session.NewBoltStore(cfg.Credentials.Path)
		if err != nil {
			methods.Close()
			return nil, err
		}
		c.stores = append(c.stores, bolt)
		creds = bolt
	}
	c.creds = creds

	var tlsConfig *tls.Config
	if cfg.HTTP.SkipTLSVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	var rt http.RoundTripper = c.metrics.RoundTripper(transport)
	if cfg.Tracing.Enabled {
		rt = middleware.Tracing(rt, middleware.WithTracerName(cfg.Tracing.TracerName))
	}
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout, Transport: rt}

	backend := cfg.BackendURL()
	c.state = session.NewState(cfg.Session.DebounceWindow)
	c.notes = notify.New(
		notify.WithObserver(func(n notify.Notification) {
			c.metrics.RecordNotification(string(n.Variant))
		}),
		notify.WithLogger(o.logger.With("component", "notify")),
	)
	c.link = target.New()

	authOpts := []auth.Option{
		auth.WithHTTPClient(httpClient),
		auth.WithTargetLink(c.link),
		auth.WithMethodStore(methods),
		auth.WithCredentialStore(creds),
		auth.WithCredentialTTL(cfg.Credentials.TTL),
		auth.WithMetrics(c.metrics),
		auth.WithLogger(o.logger.With("component", "auth")),
	}
	if o.navigator != nil {
		authOpts = append(authOpts, auth.WithNavigator(o.navigator))
	}
	c.gateway = auth.New(backend, c.state, authOpts...)

	c.client = api.New(backend, c.gateway, c.link, c.notes,
		api.WithHTTPClient(httpClient),
		api.WithRetry(cfg.HTTP.RetryMax, cfg.HTTP.RetryWaitMin, cfg.HTTP.RetryWaitMax),
		api.WithLogger(o.logger.With("component", "api")),
	)

	c.channel = channel.New(c.client, c.gateway, c.state, c.notes,
		channel.WithDialer(websocket.Dialer{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsConfig,
		}),
		channel.WithHandshakeTimeout(cfg.Notifications.HandshakeTimeout),
		channel.WithReconnectInterval(cfg.Notifications.ReconnectInterval),
		channel.WithMetrics(c.metrics),
		channel.WithLogger(o.logger.With("component", "channel")),
	)
	return c, nil
}

// BasicToken joins username and password into the raw Basic token.
func BasicToken(username, password string) string {
	return username + ":" + password
}

// Start probes the auth method, runs the push channel and resumes a
// remembered or held credential. It returns the probe error, if any, before
// anything is started. Calling Start twice is a no-op.
func (c *Console) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	method, err := c.gateway.ProbeMethod(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		if err := c.channel.Run(runCtx); err != nil {
			c.logger.Error("push channel stopped", "error", err)
		}
	}()

	remembered, _ := session.LoadCredential(ctx, c.creds)
	if c.gateway.CheckAuth(ctx, "", method, remembered != nil) {
		c.logger.Info("session resumed", "method", method, "user", c.gateway.Username())
	}
	return nil
}

// Login checks token with the current method. For Basic, token is the raw
// "user:pass" form; see BasicToken.
func (c *Console) Login(ctx context.Context, token string, rememberMe bool) bool {
	return c.gateway.CheckAuth(ctx, token, c.gateway.Method(), rememberMe)
}

// Logout ends the session and waits for the push socket to close.
func (c *Console) Logout(ctx context.Context) error {
	if err := c.gateway.Logout(ctx); err != nil {
		c.notes.Danger("Logout failed", err, "", false)
		return err
	}
	c.channel.Terminate(ctx)
	return nil
}

// RetryTarget stores a JMX credential for connectURL and asks listeners to
// retry the failed target request.
func (c *Console) RetryTarget(connectURL, username, password string) {
	c.link.StoreCredential(connectURL, username, password)
	c.link.SetAuthRetry()
}

// WaitReady blocks until the push socket is open or ctx is done.
func (c *Console) WaitReady(ctx context.Context) error {
	sub := c.channel.SubscribeState()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sub.C():
			if s.Ready {
				return nil
			}
		}
	}
}

// Close stops the push channel and releases the credential stores.
func (c *Console) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var first error
	for _, s := range c.stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.stores = nil
	return first
}

// Config returns the configuration in use.
func (c *Console) Config() *config.Config { return c.cfg }

// Session returns the session state.
func (c *Console) Session() *session.State { return c.state }

// Notifications returns the notification store.
func (c *Console) Notifications() *notify.Store { return c.notes }

// Target returns the target link.
func (c *Console) Target() *target.Link { return c.link }

// Gateway returns the auth gateway.
func (c *Console) Gateway() *auth.Gateway { return c.gateway }

// Client returns the backend request layer.
func (c *Console) Client() *api.Client { return c.client }

// Channel returns the push channel.
func (c *Console) Channel() *channel.Channel { return c.channel }

// Registry returns the Prometheus registry the metrics are registered with.
func (c *Console) Registry() *prometheus.Registry { return c.registry }
