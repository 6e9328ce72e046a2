package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/engineio/pkg/server"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":8080" || cfg.Path != "/engine.io/" {
		t.Errorf("Addr/Path = %q/%q", cfg.Addr, cfg.Path)
	}
	if cfg.PingTimeout != 60*time.Second || cfg.PingInterval != 25*time.Second {
		t.Errorf("ping = %s/%s", cfg.PingTimeout, cfg.PingInterval)
	}
	if !cfg.AllowUpgrades || !cfg.HTTPCompression || !cfg.CORSCredentials {
		t.Error("boolean defaults should be true")
	}
	if len(cfg.CompressionMethods) != 2 || cfg.CompressionMethods[1] != "deflate" {
		t.Errorf("CompressionMethods = %v", cfg.CompressionMethods)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Errorf("CORSAllowedOrigins = %v, want nil", cfg.CORSAllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENGINEIO_ADDR", "127.0.0.1:9000")
	t.Setenv("ENGINEIO_PING_TIMEOUT", "5s")
	t.Setenv("ENGINEIO_PING_INTERVAL", "2s")
	t.Setenv("ENGINEIO_ALLOW_UPGRADES", "false")
	t.Setenv("ENGINEIO_CORS_ALLOWED_ORIGINS", "https://a.example;https://b.example")
	t.Setenv("ENGINEIO_MAX_HTTP_BUFFER_SIZE", "2048")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.PingTimeout != 5*time.Second || cfg.PingInterval != 2*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.AllowUpgrades {
		t.Error("AllowUpgrades should be false")
	}
	if cfg.MaxHTTPBufferSize != 2048 {
		t.Errorf("MaxHTTPBufferSize = %d", cfg.MaxHTTPBufferSize)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestToServerConfig(t *testing.T) {
	t.Setenv("ENGINEIO_COOKIE", "eio")
	t.Setenv("ENGINEIO_TRUSTED_PROXIES", "10.0.0.0/8")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	sc := cfg.ToServerConfig(nil)
	if sc.Cookie != "eio" || sc.PingTimeout != cfg.PingTimeout || sc.CompressionThreshold != 1024 {
		t.Fatalf("server config = %+v", sc)
	}
	if len(sc.TrustedProxies) != 1 || sc.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("TrustedProxies = %v", sc.TrustedProxies)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, nil},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, nil},
		{"no addr", func(c *Config) { c.Addr = "" }, nil},
		{"ping order", func(c *Config) { c.PingInterval = c.PingTimeout }, server.ErrInvalidConfig},
		{"compression", func(c *Config) { c.CompressionMethods = []string{"br"} }, server.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "session_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("info record written at warn level")
	}
	if !strings.Contains(out, `"session_id":"abc"`) {
		t.Fatalf("json output = %q", out)
	}
}
