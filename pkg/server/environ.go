package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Environ is the normalized view of an inbound request handed to the
// dispatcher and to connect handlers.
type Environ struct {
	Method         string
	RawQuery       string
	Query          url.Values
	AcceptEncoding string
	Origin         string

	// RequestHeaders is the Access-Control-Request-Headers value.
	RequestHeaders string

	// RemoteIP is the client address, resolved through trusted proxies.
	RemoteIP string

	// Base64 reports the b64 query flag. Polling always base64 encodes
	// binary packets, so it does not change the response.
	Base64 bool

	// Request and Writer are the native request and response writer. The
	// WebSocket transport takes over Writer when it upgrades.
	Request *http.Request
	Writer  http.ResponseWriter
}

// newEnviron translates a native request.
func newEnviron(w http.ResponseWriter, r *http.Request, trusted *proxyMatcher) *Environ {
	env := &Environ{
		Method:         r.Method,
		RawQuery:       r.URL.RawQuery,
		Query:          r.URL.Query(),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		Origin:         r.Header.Get("Origin"),
		RequestHeaders: r.Header.Get("Access-Control-Request-Headers"),
		Base64:         isTrue(r.URL.Query().Get("b64")),
		Request:        r,
		Writer:         w,
	}
	if ip := clientIPFromRequest(r, trusted); ip != nil {
		env.RemoteIP = ip.String()
	}
	return env
}

// sid returns the session id from the query, or "" when absent.
func (e *Environ) sid() string {
	return e.Query.Get("sid")
}

// transport returns the requested transport, defaulting to polling.
func (e *Environ) transport() string {
	if t := e.Query.Get("transport"); t != "" {
		return t
	}
	return transportPolling
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// jsonp reports whether the query carries the JSONP marker.
func (e *Environ) jsonp() bool {
	return e.Query.Has("j")
}

func clientIPFromRequest(r *http.Request, trusted *proxyMatcher) net.IP {
	remoteIP := remoteIPFromRequest(r)
	if remoteIP == nil {
		return nil
	}
	if trusted == nil || !trusted.IsTrusted(remoteIP) {
		return remoteIP
	}

	forwarded := parseForwardedFor(r.Header.Get("Forwarded"))
	if len(forwarded) == 0 {
		forwarded = parseXForwardedFor(r.Header.Get("X-Forwarded-For"))
	}
	if len(forwarded) == 0 {
		return remoteIP
	}

	// Rightmost untrusted hop is the client.
	for i := len(forwarded) - 1; i >= 0; i-- {
		if !trusted.IsTrusted(forwarded[i]) {
			return forwarded[i]
		}
	}
	return forwarded[0]
}

func remoteIPFromRequest(r *http.Request) net.IP {
	if r == nil {
		return nil
	}
	return parseHostIP(r.RemoteAddr)
}

func parseForwardedFor(header string) []net.IP {
	var out []net.IP
	for _, element := range splitList(header) {
		for _, param := range strings.Split(element, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "for") {
				continue
			}
			if ip := parseForwardedIP(value); ip != nil {
				out = append(out, ip)
			}
		}
	}
	return out
}

func parseXForwardedFor(header string) []net.IP {
	var out []net.IP
	for _, part := range splitList(header) {
		if ip := parseForwardedIP(part); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

func splitList(header string) []string {
	if header == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(header, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseForwardedIP(value string) net.IP {
	value = strings.Trim(strings.TrimSpace(value), "\"")
	if value == "" || strings.EqualFold(value, "unknown") {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		if end := strings.Index(value, "]"); end != -1 {
			value = value[1:end]
		}
	}
	return parseHostIP(value)
}

func parseHostIP(host string) net.IP {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}

type proxyMatcher struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	if len(entries) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	ips := make(map[string]struct{})
	var nets []*net.IPNet

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			logger.Warn("invalid trusted proxy IP", "entry", entry)
			continue
		}
		ips[ip.String()] = struct{}{}
	}

	if len(ips) == 0 && len(nets) == 0 {
		return nil
	}
	return &proxyMatcher{ips: ips, nets: nets}
}

func (m *proxyMatcher) IsTrusted(ip net.IP) bool {
	if m == nil || ip == nil {
		return false
	}
	if _, ok := m.ips[ip.String()]; ok {
		return true
	}
	for _, network := range m.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
