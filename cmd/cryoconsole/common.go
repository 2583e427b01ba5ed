package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cryostatio/cryostat-sub001/internal/config"
	"github.com/cryostatio/cryostat-sub001/internal/errors"
	"github.com/cryostatio/cryostat-sub001/pkg/console"
)

// loadConfig reads --config, or ./cryoconsole.json when it exists, or the
// environment alone. Command-line flags are applied last.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configPath != "":
		cfg, err = config.LoadFile(configPath)
	default:
		cfg, err = config.Load(".")
		if errors.Is(err, "E502") {
			cfg, err = config.FromEnv()
		}
	}
	if err != nil {
		return nil, err
	}

	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. A configured log file is rotated by
// lumberjack; otherwise logs go to stderr.
func newLogger(cfg *config.Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   false,
		}
	}

	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openConsole loads the configuration and builds a console with the process
// logger installed as default.
func openConsole() (*console.Console, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	return console.New(cfg, console.WithLogger(logger))
}
