// Package config loads engineio server settings from the environment.
//
// Every setting has an ENGINEIO_ variable with a default in its struct tag.
// List values are separated by semicolons:
//
//	ENGINEIO_ADDR=:8080
//	ENGINEIO_PING_TIMEOUT=60s
//	ENGINEIO_CORS_ALLOWED_ORIGINS=https://a.example;https://b.example
//
// The serve command registers a flag for each setting; flags override the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/vango-dev/engineio/pkg/server"
)

// Config is the process configuration of an engineio server.
type Config struct {
	// Addr is the listen address. ENV: ENGINEIO_ADDR
	Addr string `env:"ENGINEIO_ADDR,default=:8080"`

	// Path is the attach path. ENV: ENGINEIO_PATH
	Path string `env:"ENGINEIO_PATH,default=/engine.io/"`

	PingTimeout  time.Duration `env:"ENGINEIO_PING_TIMEOUT,default=60s"`
	PingInterval time.Duration `env:"ENGINEIO_PING_INTERVAL,default=25s"`

	MaxHTTPBufferSize int64 `env:"ENGINEIO_MAX_HTTP_BUFFER_SIZE,default=100000000"`
	AllowUpgrades     bool  `env:"ENGINEIO_ALLOW_UPGRADES,default=true"`

	HTTPCompression      bool     `env:"ENGINEIO_HTTP_COMPRESSION,default=true"`
	CompressionThreshold int      `env:"ENGINEIO_COMPRESSION_THRESHOLD,default=1024"`
	CompressionMethods   []string `env:"ENGINEIO_COMPRESSION_METHODS,default=gzip;deflate"`

	// Cookie names the sid cookie. ENV: ENGINEIO_COOKIE
	Cookie string `env:"ENGINEIO_COOKIE,default=io"`

	// CORSAllowedOrigins is unset by default, which allows every origin.
	CORSAllowedOrigins []string `env:"ENGINEIO_CORS_ALLOWED_ORIGINS"`
	CORSCredentials    bool     `env:"ENGINEIO_CORS_CREDENTIALS,default=true"`

	TrustedProxies []string `env:"ENGINEIO_TRUSTED_PROXIES"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"ENGINEIO_LOG_LEVEL,default=info"`

	// LogFormat is text or json.
	LogFormat string `env:"ENGINEIO_LOG_FORMAT,default=text"`

	// MetricsPath serves Prometheus metrics. Empty disables it.
	MetricsPath string `env:"ENGINEIO_METRICS_PATH,default=/metrics"`

	ShutdownTimeout time.Duration `env:"ENGINEIO_SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that the server configuration does not cover.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: listen address is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("config: negative shutdown timeout")
	}
	return c.ToServerConfig(nil).ValidateConfig()
}

// ToServerConfig converts the settings into a server configuration.
func (c *Config) ToServerConfig(logger *slog.Logger) *server.Config {
	sc := server.DefaultConfig()
	sc.Path = c.Path
	sc.PingTimeout = c.PingTimeout
	sc.PingInterval = c.PingInterval
	sc.MaxHTTPBufferSize = c.MaxHTTPBufferSize
	sc.AllowUpgrades = c.AllowUpgrades
	sc.HTTPCompression = c.HTTPCompression
	sc.CompressionThreshold = c.CompressionThreshold
	if len(c.CompressionMethods) > 0 {
		sc.CompressionMethods = c.CompressionMethods
	}
	sc.Cookie = c.Cookie
	sc.CORSAllowedOrigins = c.CORSAllowedOrigins
	sc.CORSCredentials = c.CORSCredentials
	sc.TrustedProxies = c.TrustedProxies
	sc.Logger = logger
	return sc
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}
