package main

import (
	"github.com/spf13/pflag"

	"github.com/vango-dev/engineio/internal/config"
)

// bindFlags registers a flag for every setting. cfg holds the environment
// values, which become the flag defaults.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.Path, "path", cfg.Path, "Engine.IO attach path")
	fs.DurationVar(&cfg.PingTimeout, "ping-timeout", cfg.PingTimeout, "Heartbeat timeout")
	fs.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "Heartbeat interval advertised to clients")
	fs.Int64Var(&cfg.MaxHTTPBufferSize, "max-http-buffer-size", cfg.MaxHTTPBufferSize, "Largest accepted POST body in bytes")
	fs.BoolVar(&cfg.AllowUpgrades, "allow-upgrades", cfg.AllowUpgrades, "Allow polling sessions to upgrade to WebSocket")
	fs.BoolVar(&cfg.HTTPCompression, "http-compression", cfg.HTTPCompression, "Compress polling responses")
	fs.IntVar(&cfg.CompressionThreshold, "compression-threshold", cfg.CompressionThreshold, "Smallest compressed body in bytes")
	fs.StringSliceVar(&cfg.CompressionMethods, "compression-methods", cfg.CompressionMethods, "Compression methods in preference order")
	fs.StringVar(&cfg.Cookie, "cookie", cfg.Cookie, "Name of the sid cookie; empty disables it")
	fs.StringSliceVar(&cfg.CORSAllowedOrigins, "cors-allowed-origins", cfg.CORSAllowedOrigins, "Allowed CORS origins (default all)")
	fs.BoolVar(&cfg.CORSCredentials, "cors-credentials", cfg.CORSCredentials, "Send Access-Control-Allow-Credentials")
	fs.StringSliceVar(&cfg.TrustedProxies, "trusted-proxies", cfg.TrustedProxies, "Proxy IPs or CIDRs whose forwarding headers are trusted")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.StringVar(&cfg.MetricsPath, "metrics-path", cfg.MetricsPath, "Prometheus metrics path; empty disables it")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period for shutdown")
}
