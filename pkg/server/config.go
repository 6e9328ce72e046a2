package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// Compression methods understood by the response assembler.
const (
	CompressionGzip    = "gzip"
	CompressionDeflate = "deflate"
)

// Config holds configuration for the Engine.IO server.
type Config struct {
	// Path is the URL path the server is attached to by Attach.
	// Default: "/engine.io/".
	Path string

	// Heartbeat values advertised to clients in the Open packet.

	// PingTimeout is how long the client waits for a pong, and how long a
	// poll or WebSocket read may wait before the session is considered gone.
	// Default: 60 seconds.
	PingTimeout time.Duration

	// PingInterval is how often the client sends a ping.
	// Default: 25 seconds.
	PingInterval time.Duration

	// Limits

	// MaxHTTPBufferSize is the largest POST body accepted.
	// Default: 100000000.
	MaxHTTPBufferSize int64

	// Transports

	// AllowUpgrades lets polling sessions upgrade to WebSocket.
	// Default: true.
	AllowUpgrades bool

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// Compression

	// HTTPCompression enables compression of polling responses.
	// Default: true.
	HTTPCompression bool

	// CompressionThreshold is the smallest body, in bytes, that is compressed.
	// Zero compresses every body.
	// Default: 1024.
	CompressionThreshold int

	// CompressionMethods lists supported encodings in preference order.
	// Default: ["gzip", "deflate"].
	CompressionMethods []string

	// Cookies and CORS

	// Cookie is the name of the cookie carrying the sid after a polling
	// handshake. Empty disables the cookie.
	// Default: "io".
	Cookie string

	// CORSAllowedOrigins lists origins allowed to make cross-origin requests.
	// Nil allows every origin. An empty non-nil slice allows none.
	// Default: nil.
	CORSAllowedOrigins []string

	// CORSCredentials adds Access-Control-Allow-Credentials to CORS responses.
	// Default: true.
	CORSCredentials bool

	// TrustedProxies lists reverse proxy IPs or CIDRs whose Forwarded and
	// X-Forwarded-For headers are honored when resolving Environ.RemoteIP.
	// Default: nil (don't trust proxy headers).
	TrustedProxies []string

	// Logger is the parent logger. A "component" attribute is added.
	// Default: slog.Default().
	Logger *slog.Logger

	// SocketFactory creates the socket for each new session.
	// Default: pkg/socket.New.
	SocketFactory SocketFactory
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Path:                 "/engine.io/",
		PingTimeout:          60 * time.Second,
		PingInterval:         25 * time.Second,
		MaxHTTPBufferSize:    100_000_000,
		AllowUpgrades:        true,
		ReadBufferSize:       4096,
		WriteBufferSize:      4096,
		HTTPCompression:      true,
		CompressionThreshold: 1024,
		CompressionMethods:   []string{CompressionGzip, CompressionDeflate},
		Cookie:               "io",
		CORSCredentials:      true,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.CompressionMethods = slices.Clone(c.CompressionMethods)
	clone.CORSAllowedOrigins = slices.Clone(c.CORSAllowedOrigins)
	clone.TrustedProxies = slices.Clone(c.TrustedProxies)
	return &clone
}

// WithPath sets the attach path and returns the config for chaining.
func (c *Config) WithPath(path string) *Config {
	c.Path = path
	return c
}

// WithPing sets the ping timeout and interval and returns the config for chaining.
func (c *Config) WithPing(timeout, interval time.Duration) *Config {
	c.PingTimeout = timeout
	c.PingInterval = interval
	return c
}

// WithCORSAllowedOrigins sets the allowed origins and returns the config for chaining.
func (c *Config) WithCORSAllowedOrigins(origins ...string) *Config {
	c.CORSAllowedOrigins = origins
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// ValidateConfig reports configuration values the server cannot run with.
func (c *Config) ValidateConfig() error {
	if c.PingTimeout < 0 || c.PingInterval < 0 {
		return fmt.Errorf("%w: negative ping value", ErrInvalidConfig)
	}
	if c.PingTimeout > 0 && c.PingInterval >= c.PingTimeout {
		return fmt.Errorf("%w: ping interval %s must be shorter than ping timeout %s",
			ErrInvalidConfig, c.PingInterval, c.PingTimeout)
	}
	if c.MaxHTTPBufferSize < 0 {
		return fmt.Errorf("%w: negative max HTTP buffer size", ErrInvalidConfig)
	}
	if c.CompressionThreshold < 0 {
		return fmt.Errorf("%w: negative compression threshold", ErrInvalidConfig)
	}
	if c.ReadBufferSize < 0 || c.WriteBufferSize < 0 {
		return fmt.Errorf("%w: negative WebSocket buffer size", ErrInvalidConfig)
	}
	for _, m := range c.CompressionMethods {
		if _, ok := compressors[m]; !ok {
			return fmt.Errorf("%w: unknown compression method %q", ErrInvalidConfig, m)
		}
	}
	return nil
}

// withDefaults fills zero numeric and string fields, except
// CompressionThreshold where zero is meaningful. Booleans are taken as
// given, so a nil config passed to New gets DefaultConfig instead.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxHTTPBufferSize == 0 {
		c.MaxHTTPBufferSize = d.MaxHTTPBufferSize
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.CompressionMethods == nil {
		c.CompressionMethods = d.CompressionMethods
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.SocketFactory == nil {
		c.SocketFactory = DefaultSocketFactory
	}
	return c
}

// originAllowed applies the CORS origin policy.
func (c *Config) originAllowed(origin string) bool {
	return c.CORSAllowedOrigins == nil || slices.Contains(c.CORSAllowedOrigins, origin)
}

// checkOrigin is the WebSocket upgrader's origin check. Requests without an
// Origin header come from non-browser clients and are allowed.
func (c *Config) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || c.originAllowed(origin)
}
