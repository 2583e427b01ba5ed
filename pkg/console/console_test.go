package console

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cryostatio/cryostat-sub001/internal/backendtest"
	"github.com/cryostatio/cryostat-sub001/internal/config"
	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
	"github.com/cryostatio/cryostat-sub001/pkg/session"
)

func testConfig(b *backendtest.Backend) *config.Config {
	cfg := config.New()
	cfg.Backend.URL = b.URL().String()
	cfg.Session.DebounceWindow = 0
	cfg.Notifications.ReconnectInterval = 20 * time.Millisecond
	cfg.HTTP.RetryWaitMin = time.Millisecond
	cfg.HTTP.RetryWaitMax = time.Millisecond
	return cfg
}

func newConsole(t *testing.T, cfg *config.Config) *Console {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitReady(t *testing.T, c *Console) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.Backend.URL = "ftp://nowhere"
	if _, err := New(cfg); err == nil {
		t.Fatal("New accepted an invalid backend URL")
	}
}

func TestLoginConnectsChannel(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("user", "user:pass")
	c := newConsole(t, testConfig(b))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.Gateway().Method() != auth.MethodBasic {
		t.Errorf("method = %s, want Basic", c.Gateway().Method())
	}
	if c.Session().Get() != session.NoSession {
		t.Errorf("session = %v before login", c.Session().Get())
	}

	if !c.Login(context.Background(), BasicToken("user", "pass"), false) {
		t.Fatal("Login failed")
	}
	waitReady(t, c)

	st := c.Status()
	if st.Session != session.ActiveSession || st.Username != "user" || !st.Connection.Ready {
		t.Errorf("status = %+v", st)
	}
}

func TestLoginRejected(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("user", "user:pass")
	c := newConsole(t, testConfig(b))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.Login(context.Background(), BasicToken("user", "wrong"), false) {
		t.Fatal("Login accepted a wrong password")
	}
	if c.Session().Get() != session.NoSession {
		t.Errorf("session = %v, want NoSession", c.Session().Get())
	}
}

func TestLogoutClosesChannel(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("user", "user:pass")
	c := newConsole(t, testConfig(b))
	c.Start(context.Background())
	c.Login(context.Background(), BasicToken("user", "pass"), false)
	waitReady(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if c.Channel().State().Ready {
		t.Error("channel still ready after logout")
	}
	if c.Session().Get() != session.NoSession {
		t.Errorf("session = %v, want NoSession", c.Session().Get())
	}
	if c.Gateway().Token() != "" {
		t.Error("token held after logout")
	}
}

func TestRememberedCredentialSurvivesRestart(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("user", "user:pass")
	cfg := testConfig(b)
	cfg.Credentials.Path = filepath.Join(t.TempDir(), "credentials.db")

	first, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	first.Start(context.Background())
	if !first.Login(context.Background(), BasicToken("user", "pass"), true) {
		t.Fatal("Login failed")
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := newConsole(t, cfg)
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitReady(t, second)
	if got := second.Gateway().Username(); got != "user" {
		t.Errorf("username = %q, want user", got)
	}
}

func TestRetryTarget(t *testing.T) {
	b := backendtest.New(t)
	c := newConsole(t, testConfig(b))
	retries := c.Target().AuthRetry()
	defer retries.Close()

	c.RetryTarget(" service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi ", "admin", "secret")

	select {
	case <-retries.C():
	case <-time.After(time.Second):
		t.Fatal("no auth retry emitted")
	}
	cred, ok := c.Target().Credential("service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi")
	if !ok || cred.Username != "admin" || cred.Password != "secret" {
		t.Errorf("credential = %+v, %v", cred, ok)
	}
}

func TestStatusHandler(t *testing.T) {
	b := backendtest.New(t)
	b.AddUser("user", "user:pass")
	c := newConsole(t, testConfig(b))
	c.Start(context.Background())
	c.Login(context.Background(), BasicToken("user", "pass"), false)
	waitReady(t, c)
	c.Notifications().Warning("Disk", "almost full", "", false)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := get(HealthPath); code != http.StatusOK || body != "ok" {
		t.Errorf("healthz = %d %q", code, body)
	}

	_, body := get(SessionPath)
	var st struct {
		Session    string `json:"session"`
		Method     string `json:"method"`
		Connection struct {
			Ready bool   `json:"ready"`
			Phase string `json:"phase"`
		} `json:"connection"`
	}
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decoding session: %v (%s)", err, body)
	}
	if st.Session != "ActiveSession" || st.Method != "Basic" || !st.Connection.Ready || st.Connection.Phase != "Connected" {
		t.Errorf("session = %+v", st)
	}

	_, body = get(NotificationsPath + "?view=problems")
	var ns []notify.Notification
	if err := json.Unmarshal([]byte(body), &ns); err != nil {
		t.Fatalf("decoding notifications: %v", err)
	}
	if len(ns) != 1 || ns[0].Title != "Disk" {
		t.Errorf("problems = %+v", ns)
	}

	if code, _ := get(NotificationsPath + "?view=bogus"); code != http.StatusBadRequest {
		t.Errorf("unknown view status = %d", code)
	}

	_, body = get(MetricsPath)
	for _, want := range []string{
		"cryoconsole_channel_connections_total 1",
		"cryoconsole_channel_live_sockets 1",
		`cryoconsole_auth_checks_total{result="success"}`,
		`cryoconsole_notifications_total{variant="warning"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
