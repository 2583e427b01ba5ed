package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	consoleerrors "github.com/cryostatio/cryostat-sub001/internal/errors"
	"github.com/cryostatio/cryostat-sub001/pkg/broadcast"
	"github.com/cryostatio/cryostat-sub001/pkg/middleware"
	"github.com/cryostatio/cryostat-sub001/pkg/session"
	"github.com/cryostatio/cryostat-sub001/pkg/target"
)

// Gateway performs credential exchange against the backend.
type Gateway struct {
	backend *url.URL
	client  *http.Client
	state   *session.State
	link    *target.Link
	nav     Navigator
	cache   session.Store
	creds   session.Store
	ttl     time.Duration
	metrics *middleware.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	token    *memguard.Enclave
	username string

	method       *broadcast.Cell[Method]
	tokenVersion *broadcast.Cell[uint64]
	loggedOut    *broadcast.Signal[struct{}]
	learned      chan struct{}
	learnedOnce  sync.Once
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the client used for auth requests. Redirects are
// never followed regardless of the client's own policy.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithNavigator sets the navigator. Default: a LocationNavigator at the
// backend URL.
func WithNavigator(n Navigator) Option {
	return func(g *Gateway) { g.nav = n }
}

// WithTargetLink sets the link consulted for JMX credentials.
func WithTargetLink(l *target.Link) Option {
	return func(g *Gateway) { g.link = l }
}

// WithMethodStore sets the session-scoped store the auth method is cached
// in. Default: a new MemoryStore.
func WithMethodStore(s session.Store) Option {
	return func(g *Gateway) { g.cache = s }
}

// WithCredentialStore sets the store remembered credentials go to.
// Default: the method store.
func WithCredentialStore(s session.Store) Option {
	return func(g *Gateway) { g.creds = s }
}

// WithCredentialTTL sets how long remembered credentials stay valid.
// Zero keeps them until logout.
func WithCredentialTTL(d time.Duration) Option {
	return func(g *Gateway) { g.ttl = d }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *middleware.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a Gateway for backend. The cached auth method, if any, is
// restored from the method store.
func New(backend *url.URL, state *session.State, opts ...Option) *Gateway {
	g := &Gateway{
		backend:      backend,
		state:        state,
		logger:       slog.Default().With("component", "auth"),
		method:       broadcast.NewCell(MethodUnknown),
		tokenVersion: broadcast.NewCell[uint64](0),
		loggedOut:    broadcast.NewSignal[struct{}](),
		learned:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		g.client = &http.Client{Timeout: 30 * time.Second}
	}
	client := *g.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	g.client = &client

	if g.nav == nil {
		g.nav = NewLocationNavigator(backend, nil)
	}
	if g.link == nil {
		g.link = target.New()
	}
	if g.cache == nil {
		g.cache = session.NewMemoryStore()
	}
	if g.creds == nil {
		g.creds = g.cache
	}

	if raw, err := g.cache.Load(context.Background(), session.KeyAuthMethod); err == nil && raw != nil {
		if m := ParseMethod(string(raw)); m.Known() {
			g.method.Set(m)
		}
	}
	return g
}

// Method returns the current auth method.
func (g *Gateway) Method() Method {
	return g.method.Get()
}

// SubscribeMethod replays the current method and then every change.
func (g *Gateway) SubscribeMethod() *broadcast.Subscription[Method] {
	return g.method.Subscribe()
}

// MethodLearned is closed once a method has been observed or a credential
// check has finished.
func (g *Gateway) MethodLearned() <-chan struct{} {
	return g.learned
}

// TokenVersion increments every time the held token changes.
func (g *Gateway) TokenVersion() uint64 {
	return g.tokenVersion.Get()
}

// SubscribeTokenVersion replays the current token version and then every
// change.
func (g *Gateway) SubscribeTokenVersion() *broadcast.Subscription[uint64] {
	return g.tokenVersion.Subscribe()
}

// LoggedOut subscribes to successful logouts.
func (g *Gateway) LoggedOut() *broadcast.Subscription[struct{}] {
	return g.loggedOut.Subscribe()
}

// Username returns the user the backend reported for the accepted token.
func (g *Gateway) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.username
}

// Token returns the accepted, encoded token. It is empty before a
// successful check and after logout.
func (g *Gateway) Token() string {
	g.mu.Lock()
	enclave := g.token
	g.mu.Unlock()

	if enclave == nil {
		return ""
	}
	buf, err := enclave.Open()
	if err != nil {
		g.logger.Error("opening token enclave", "error", err)
		return ""
	}
	defer buf.Destroy()
	return string(buf.Bytes())
}

// Navigator returns the navigator in use.
func (g *Gateway) Navigator() Navigator {
	return g.nav
}

// ProbeMethod issues a credential-less check to learn the method the
// backend requires. It never advances the session.
func (g *Gateway) ProbeMethod(ctx context.Context) (Method, error) {
	defer g.completeMethodSignal()

	resp, err := g.post(ctx, g.resolve(AuthPath), http.Header{})
	if err != nil {
		return g.Method(), consoleerrors.New("E104").Wrap(err)
	}
	defer drain(resp)

	m := g.learnMethod(ctx, resp.Header.Get(HeaderAuthenticate))
	g.logger.Info("auth method probed", "method", m, "status", resp.StatusCode)
	return m, nil
}

// CheckAuth exchanges token with the backend and reports whether it was
// accepted. An empty token falls back to the location fragment's
// access_token, then the remembered credential, then the held token. An
// empty method falls back to the cached method.
//
// Failures of any kind resolve to false. MethodLearned is closed on every
// path.
func (g *Gateway) CheckAuth(ctx context.Context, token string, method Method, rememberMe bool) bool {
	defer g.completeMethodSignal()

	fragment := g.fragment()
	if token == "" {
		token = fragment.Get("access_token")
	}
	encoded := encodeToken(token)
	if encoded == "" {
		encoded = g.cachedToken(ctx)
	}
	if encoded == "" {
		encoded = g.Token()
	}
	if strings.EqualFold(fragment.Get("token_type"), string(MethodBearer)) {
		method = MethodBearer
	}
	if method == "" {
		method = g.Method()
	}

	header := http.Header{}
	if v := authorization(method, encoded); v != "" {
		header.Set(HeaderAuthorization, v)
	}

	resp, err := g.post(ctx, g.resolve(AuthPath), header)
	if err != nil {
		g.logger.Warn("auth check failed", "error", err)
		g.metrics.RecordAuthCheck(false)
		return false
	}
	defer drain(resp)

	g.learnMethod(ctx, resp.Header.Get(HeaderAuthenticate))

	if resp.StatusCode == http.StatusFound {
		if loc := resp.Header.Get(HeaderLocation); loc != "" {
			g.logger.Info("auth check redirected", "location", loc)
			g.nav.Navigate(loc)
		}
		g.metrics.RecordAuthCheck(false)
		return false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Info("auth check rejected", "status", resp.StatusCode)
		g.metrics.RecordAuthCheck(false)
		return false
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		g.logger.Warn("auth response undecodable", "error", err)
		g.metrics.RecordAuthCheck(false)
		return false
	}
	if body.Meta.Status != "OK" {
		g.logger.Info("auth check rejected", "status", body.Meta.Status)
		g.metrics.RecordAuthCheck(false)
		return false
	}

	g.accept(ctx, encoded, body.Data.Result.Username, rememberMe)
	g.state.Set(session.CreatingSession)
	g.metrics.RecordAuthCheck(true)
	g.logger.Info("auth check accepted", "user", body.Data.Result.Username, "method", g.Method())
	return true
}

// Headers returns the auth headers every outbound request carries. When a
// target is selected and has JMX credentials, X-JMX-Authorization is added.
func (g *Gateway) Headers(ctx context.Context) http.Header {
	h := http.Header{}
	if v := authorization(g.Method(), g.Token()); v != "" {
		h.Set(HeaderAuthorization, v)
	}
	if sel := g.link.Selected(); !sel.IsZero() {
		if c, ok := g.link.Credential(sel.ConnectURL); ok {
			raw := c.Username + ":" + c.Password
			h.Set(HeaderJMXAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
		}
	}
	return h
}

// Logout ends the backend session. A 302 answer is followed with a second
// POST to its X-Location. On success the session becomes NoSession, held
// and remembered credentials are dropped and the navigator moves to the
// current location without its fragment.
func (g *Gateway) Logout(ctx context.Context) error {
	resp, err := g.post(ctx, g.resolve(LogoutPath), g.Headers(ctx))
	if err != nil {
		return consoleerrors.New("E102").Wrap(err)
	}
	drain(resp)

	if resp.StatusCode == http.StatusFound {
		loc := resp.Header.Get(HeaderLocation)
		if loc == "" {
			return consoleerrors.New("E103").WithStatus(resp.StatusCode)
		}
		g.logger.Info("logout redirected", "location", loc)
		resp, err = g.post(ctx, g.resolve(loc), g.Headers(ctx))
		if err != nil {
			return consoleerrors.New("E102").Wrap(err)
		}
		drain(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return consoleerrors.New("E102").WithStatus(resp.StatusCode)
	}

	g.state.Set(session.NoSession)
	if err := session.ForgetCredential(ctx, g.creds); err != nil {
		g.logger.Warn("forgetting credentials", "error", err)
	}
	_ = g.cache.Delete(ctx, session.KeyUsername)
	g.clearToken()
	g.loggedOut.Emit(struct{}{})
	g.logger.Info("logged out")

	g.nav.Navigate(bareLocation(g.nav.Location()))
	return nil
}

type authResponse struct {
	Meta struct {
		Status string `json:"status"`
	} `json:"meta"`
	Data struct {
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	} `json:"data"`
}

func (g *Gateway) accept(ctx context.Context, encoded, username string, rememberMe bool) {
	if rememberMe && encoded != "" {
		expires := session.NoExpiry
		if g.ttl > 0 {
			expires = time.Now().Add(g.ttl)
		}
		cred := session.CachedCredential{Token: encoded, Username: username}
		if err := session.SaveCredential(ctx, g.creds, cred, expires); err != nil {
			g.logger.Warn("remembering credentials", "error", err)
		}
	} else if err := session.ForgetCredential(ctx, g.creds); err != nil {
		g.logger.Warn("forgetting credentials", "error", err)
	}
	_ = g.cache.Save(ctx, session.KeyUsername, []byte(username), session.NoExpiry)

	g.mu.Lock()
	changed := g.username != username
	g.username = username
	g.mu.Unlock()

	if encoded != g.Token() {
		g.setToken(encoded)
		changed = true
	}
	if changed {
		g.tokenVersion.Update(func(v uint64) uint64 { return v + 1 })
	}
}

func (g *Gateway) setToken(encoded string) {
	var enclave *memguard.Enclave
	if encoded != "" {
		enclave = memguard.NewEnclave([]byte(encoded))
	}
	g.mu.Lock()
	g.token = enclave
	g.mu.Unlock()
}

func (g *Gateway) clearToken() {
	g.mu.Lock()
	had := g.token != nil || g.username != ""
	g.token = nil
	g.username = ""
	g.mu.Unlock()

	if had {
		g.tokenVersion.Update(func(v uint64) uint64 { return v + 1 })
	}
}

// learnMethod records the method named by header and persists it. A header
// naming no valid method never replaces a known one.
func (g *Gateway) learnMethod(ctx context.Context, header string) Method {
	defer g.completeMethodSignal()

	m := ParseMethod(header)
	if !m.Known() {
		if current := g.method.Get(); current.Known() {
			g.logger.Debug("keeping auth method", "method", current, "header", header)
			return current
		}
		return m
	}
	if m != g.method.Get() {
		g.method.Set(m)
	}
	if err := g.cache.Save(ctx, session.KeyAuthMethod, []byte(m), session.NoExpiry); err != nil {
		g.logger.Warn("caching auth method", "error", err)
	}
	return m
}

func (g *Gateway) completeMethodSignal() {
	g.learnedOnce.Do(func() { close(g.learned) })
}

func (g *Gateway) cachedToken(ctx context.Context) string {
	c, err := session.LoadCredential(ctx, g.creds)
	if err != nil || c == nil {
		return ""
	}
	return c.Token
}

func (g *Gateway) fragment() url.Values {
	loc := g.nav.Location()
	if loc == nil || loc.Fragment == "" {
		return url.Values{}
	}
	v, err := url.ParseQuery(loc.Fragment)
	if err != nil {
		return url.Values{}
	}
	return v
}

func (g *Gateway) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return g.backend.ResolveReference(u).String()
}

func (g *Gateway) post(ctx context.Context, endpoint string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", req.URL.Path, err)
	}
	return resp, nil
}

// authorization builds the Authorization header value. Unknown methods and
// missing tokens produce no header.
func authorization(m Method, encoded string) string {
	switch m {
	case MethodNone:
		return string(MethodNone)
	case MethodBasic, MethodBearer:
		if encoded == "" {
			return ""
		}
		return string(m) + " " + encoded
	default:
		return ""
	}
}

func encodeToken(raw string) string {
	if raw == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
