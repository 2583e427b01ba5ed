package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
)

func TestRawToken(t *testing.T) {
	t.Setenv("CRYOCONSOLE_PASSWORD", "from-env")
	t.Setenv("CRYOCONSOLE_TOKEN", "env-token")

	tests := []struct {
		name   string
		flags  credentialFlags
		method auth.Method
		want   string
	}{
		{"basic flags", credentialFlags{username: "admin", password: "secret"}, auth.MethodBasic, "admin:secret"},
		{"basic env password", credentialFlags{username: "admin"}, auth.MethodBasic, "admin:from-env"},
		{"bearer flag", credentialFlags{token: "abc"}, auth.MethodBearer, "abc"},
		{"bearer env", credentialFlags{}, auth.MethodBearer, "env-token"},
		{"none", credentialFlags{username: "admin"}, auth.MethodNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.rawToken(tt.method); got != tt.want {
				t.Errorf("rawToken = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintNewSkipsSeen(t *testing.T) {
	seen := map[string]bool{"a": true}
	ns := []notify.Notification{
		{Key: "c", Title: "hidden", Hidden: true},
		{Key: "b", Title: "new"},
		{Key: "a", Title: "old"},
	}
	printNew(ns, seen, false)

	for _, key := range []string{"a", "b", "c"} {
		if !seen[key] {
			t.Errorf("%s not marked seen", key)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cryoconsole.json")
	if err := os.WriteFile(path, []byte(`{"backend":{"url":"http://file:8181"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	configPath, backendURL, logLevel = path, "https://flag:8443", "debug"
	defer func() { configPath, backendURL, logLevel = "", "", "" }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Backend.URL != "https://flag:8443" {
		t.Errorf("backend = %q", cfg.Backend.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}
