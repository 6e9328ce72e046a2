package server

import (
	"net"
	"net/http/httptest"
	"testing"
)

func TestClientIPFromRequest_UntrustedProxyIgnoresForwarded(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com", nil)
	req.RemoteAddr = "198.51.100.10:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	trusted := newProxyMatcher([]string{"203.0.113.1"}, nil)
	got := clientIPFromRequest(req, trusted)
	want := net.ParseIP("198.51.100.10")

	if got == nil || !got.Equal(want) {
		t.Fatalf("clientIP=%v, want %v", got, want)
	}
}

func TestClientIPFromRequest_TrustedProxyRightMostUntrusted(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com", nil)
	req.RemoteAddr = "203.0.113.10:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 203.0.113.11, 192.0.2.20")

	trusted := newProxyMatcher([]string{"203.0.113.0/24"}, nil)
	got := clientIPFromRequest(req, trusted)
	want := net.ParseIP("192.0.2.20")

	if got == nil || !got.Equal(want) {
		t.Fatalf("clientIP=%v, want %v", got, want)
	}
}

func TestClientIPFromRequest_ForwardedHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com", nil)
	req.RemoteAddr = "203.0.113.10:1234"
	req.Header.Set("Forwarded", `for="[2001:db8::1]:4711";proto=https, for=203.0.113.10`)

	trusted := newProxyMatcher([]string{"203.0.113.10"}, nil)
	got := clientIPFromRequest(req, trusted)
	want := net.ParseIP("2001:db8::1")

	if got == nil || !got.Equal(want) {
		t.Fatalf("clientIP=%v, want %v", got, want)
	}
}

func TestNewProxyMatcherSkipsInvalidEntries(t *testing.T) {
	if m := newProxyMatcher([]string{"not-an-ip", "10.0.0.0/99"}, nil); m != nil {
		t.Fatalf("newProxyMatcher() = %+v, want nil", m)
	}
}

func TestEnvironQuery(t *testing.T) {
	tests := []struct {
		target    string
		sid       string
		transport string
		b64       bool
		jsonp     bool
	}{
		{"/engine.io/", "", "polling", false, false},
		{"/engine.io/?transport=websocket", "", "websocket", false, false},
		{"/engine.io/?sid=abc&b64=1", "abc", "polling", true, false},
		{"/engine.io/?b64=TRUE", "", "polling", true, false},
		{"/engine.io/?b64=0", "", "polling", false, false},
		{"/engine.io/?j=0", "", "polling", false, true},
		{"/engine.io/?sid=", "", "polling", false, false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.target, nil)
		env := newEnviron(httptest.NewRecorder(), req, nil)
		if got := env.sid(); got != tt.sid {
			t.Errorf("%s: sid = %q, want %q", tt.target, got, tt.sid)
		}
		if got := env.transport(); got != tt.transport {
			t.Errorf("%s: transport = %q, want %q", tt.target, got, tt.transport)
		}
		if got := env.Base64; got != tt.b64 {
			t.Errorf("%s: b64 = %v, want %v", tt.target, got, tt.b64)
		}
		if got := env.jsonp(); got != tt.jsonp {
			t.Errorf("%s: jsonp = %v, want %v", tt.target, got, tt.jsonp)
		}
	}
}
