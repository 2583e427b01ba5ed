package config

import (
	stderrors "errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cryostatio/cryostat-sub001/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "cryoconsole.json"

	// EnvPrefix is the prefix of environment overrides.
	EnvPrefix = "CRYOCONSOLE"

	// DefaultBackendURL is the default backend authority.
	DefaultBackendURL = "http://localhost:8181"

	// DefaultReconnectInterval is the fixed push channel reconnect tick.
	DefaultReconnectInterval = 5 * time.Second

	// DefaultDebounceWindow absorbs rapid duplicate session state signals.
	DefaultDebounceWindow = 100 * time.Millisecond

	// DefaultHTTPTimeout bounds every backend request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultCredentialTTL is how long remembered credentials stay valid.
	DefaultCredentialTTL = 24 * time.Hour
)

// Config represents the complete cryoconsole.json configuration.
type Config struct {
	// Backend contains the backend location.
	Backend BackendConfig `json:"backend" mapstructure:"backend"`

	// HTTP contains request layer settings.
	HTTP HTTPConfig `json:"http" mapstructure:"http"`

	// Session contains session state settings.
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Notifications contains push channel settings.
	Notifications NotificationsConfig `json:"notifications" mapstructure:"notifications"`

	// Credentials contains credential cache settings.
	Credentials CredentialsConfig `json:"credentials" mapstructure:"credentials"`

	// Log contains logging settings.
	Log LogConfig `json:"log" mapstructure:"log"`

	// Status contains the local status server settings.
	Status StatusConfig `json:"status" mapstructure:"status"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// BackendConfig locates the backend.
type BackendConfig struct {
	// URL is the backend authority, e.g. "https://cryostat:8181".
	URL string `json:"url" mapstructure:"url"`
}

// HTTPConfig contains request layer settings.
type HTTPConfig struct {
	// Timeout bounds a single request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// RetryMax is the maximum number of retries for idempotent lookups.
	RetryMax int `json:"retry_max" mapstructure:"retry_max"`

	// RetryWaitMin is the minimum wait between retries.
	RetryWaitMin time.Duration `json:"retry_wait_min" mapstructure:"retry_wait_min"`

	// RetryWaitMax is the maximum wait between retries.
	RetryWaitMax time.Duration `json:"retry_wait_max" mapstructure:"retry_wait_max"`

	// SkipTLSVerify accepts any certificate presented by the backend.
	// This should be used only for testing.
	SkipTLSVerify bool `json:"skip_tls_verify" mapstructure:"skip_tls_verify"`
}

// SessionConfig contains session state settings.
type SessionConfig struct {
	// DebounceWindow delays session state deliveries so that rapid
	// duplicate transitions collapse. Zero delivers immediately.
	DebounceWindow time.Duration `json:"debounce_window" mapstructure:"debounce_window"`
}

// NotificationsConfig contains push channel settings.
type NotificationsConfig struct {
	// ReconnectInterval is the fixed reconnect tick. There is no backoff.
	ReconnectInterval time.Duration `json:"reconnect_interval" mapstructure:"reconnect_interval"`

	// HandshakeTimeout bounds the WebSocket handshake. Zero means no limit.
	HandshakeTimeout time.Duration `json:"handshake_timeout" mapstructure:"handshake_timeout"`
}

// CredentialsConfig contains credential cache settings.
type CredentialsConfig struct {
	// Path is the bbolt file used for remembered credentials.
	// Empty keeps remembered credentials in memory only.
	Path string `json:"path" mapstructure:"path"`

	// TTL is how long remembered credentials stay valid.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" mapstructure:"format"`

	// File enables rotating file output when set.
	File string `json:"file" mapstructure:"file"`

	// MaxSize is the size in megabytes before rotation.
	MaxSize int `json:"max_size" mapstructure:"max_size"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `json:"max_backups" mapstructure:"max_backups"`

	// MaxAge is the number of days to keep rotated files.
	MaxAge int `json:"max_age" mapstructure:"max_age"`
}

// StatusConfig contains the local status server settings.
type StatusConfig struct {
	// Address is the listen address of the status server. Empty disables it.
	Address string `json:"address" mapstructure:"address"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled wraps backend requests in client spans.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TracerName is the name of the tracer.
	TracerName string `json:"tracer_name" mapstructure:"tracer_name"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{
		Session: SessionConfig{
			DebounceWindow: DefaultDebounceWindow,
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for cryoconsole.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Environment
// overrides are applied on top of the file.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E502").
				WithDetail("No " + ConfigFileName + " found at " + path)
		}
		return nil, errors.New("E500").Wrap(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New("E500").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// FromEnv builds a configuration from defaults and environment overrides only.
func FromEnv() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so that AutomaticEnv can override keys
// absent from the file.
func setDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.retry_max", d.HTTP.RetryMax)
	v.SetDefault("http.retry_wait_min", d.HTTP.RetryWaitMin)
	v.SetDefault("http.retry_wait_max", d.HTTP.RetryWaitMax)
	v.SetDefault("http.skip_tls_verify", d.HTTP.SkipTLSVerify)
	v.SetDefault("session.debounce_window", d.Session.DebounceWindow)
	v.SetDefault("notifications.reconnect_interval", d.Notifications.ReconnectInterval)
	v.SetDefault("notifications.handshake_timeout", d.Notifications.HandshakeTimeout)
	v.SetDefault("credentials.path", d.Credentials.Path)
	v.SetDefault("credentials.ttl", d.Credentials.TTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("status.address", d.Status.Address)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.tracer_name", d.Tracing.TracerName)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("E500").Wrap(err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Backend.URL == "" {
		c.Backend.URL = DefaultBackendURL
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.HTTP.RetryWaitMin == 0 {
		c.HTTP.RetryWaitMin = time.Second
	}
	if c.HTTP.RetryWaitMax == 0 {
		c.HTTP.RetryWaitMax = 5 * time.Second
	}

	if c.Notifications.ReconnectInterval == 0 {
		c.Notifications.ReconnectInterval = DefaultReconnectInterval
	}

	if c.Credentials.TTL == 0 {
		c.Credentials.TTL = DefaultCredentialTTL
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 28
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "cryoconsole"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("E501").
			WithDetail("backend.url must be an absolute http(s) URL, got " + c.Backend.URL)
	}
	if c.HTTP.RetryMax < 0 {
		return errors.New("E501").WithDetail("http.retry_max must not be negative")
	}
	if c.HTTP.RetryWaitMin > c.HTTP.RetryWaitMax {
		return errors.New("E501").WithDetail("http.retry_wait_min must not exceed http.retry_wait_max")
	}
	if c.Session.DebounceWindow < 0 {
		return errors.New("E501").WithDetail("session.debounce_window must not be negative")
	}
	if c.Notifications.ReconnectInterval < 0 || c.Notifications.HandshakeTimeout < 0 {
		return errors.New("E501").WithDetail("notification intervals must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return errors.New("E501").WithDetail("log.level: " + err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E501").WithDetail("log.format must be text or json")
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, stderrors.New("unknown level " + c.Log.Level)
	}
	return level, nil
}

// BackendURL returns the parsed backend authority.
func (c *Config) BackendURL() *url.URL {
	u, _ := url.Parse(c.Backend.URL)
	return u
}
