package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func resolvedIP(t *testing.T, trusted []netip.Prefix, remote string, forwarded ...string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	for _, f := range forwarded {
		req.Header.Add("X-Forwarded-For", f)
	}

	var got string
	ClientIPMiddleware(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	})).ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}

	tests := []struct {
		name      string
		trusted   []netip.Prefix
		remote    string
		forwarded []string
		want      string
	}{
		{name: "no header", remote: "192.168.1.5:5555", want: "192.168.1.5"},
		{name: "header ignored without trusted proxies", remote: "192.168.1.5:5555", forwarded: []string{"203.0.113.7"}, want: "192.168.1.5"},
		{name: "header ignored from untrusted peer", trusted: proxies, remote: "192.168.1.5:5555", forwarded: []string{"203.0.113.7"}, want: "192.168.1.5"},
		{name: "trusted peer", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{"203.0.113.7"}, want: "203.0.113.7"},
		{name: "rightmost untrusted hop wins", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{"198.51.100.9, 203.0.113.7, 10.0.0.2"}, want: "203.0.113.7"},
		{name: "repeated headers", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{"198.51.100.9", "203.0.113.7"}, want: "203.0.113.7"},
		{name: "garbage hop stops the walk", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{"203.0.113.7, not-an-ip"}, want: "10.0.0.1"},
		{name: "oversized hop", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{strings.Repeat("a", 300)}, want: "10.0.0.1"},
		{name: "all hops trusted", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{"10.1.1.1, 10.2.2.2"}, want: "10.1.1.1"},
		{name: "ipv6 peer", trusted: proxies, remote: "[::1]:8080", forwarded: []string{"2001:db8::7"}, want: "2001:db8::7"},
		{name: "mapped ipv4", remote: "[::ffff:192.0.2.1]:80", want: "192.0.2.1"},
		{name: "zone stripped", trusted: proxies, remote: "10.0.0.1:443", forwarded: []string{"fe80::1%" + strings.Repeat("x", 80)}, want: "fe80::1"},
		{name: "unparsable remote", remote: "pipe", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolvedIP(t, tt.trusted, tt.remote, tt.forwarded...)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 45)
		})
	}
}

func TestClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "192.168.1.5", ClientIP(req))
}

func TestRateLimitMiddleware_IgnoresSpoofedForwardedFor(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	rl := NewRateLimitMiddleware(ctx, 1, 1)
	defer func() {
		cancel()
		<-rl.Done()
	}()
	handler := Chain(okHandler(), ClientIPMiddleware(nil), rl.Middleware)

	codes := make([]int, 0, 2)
	for _, hop := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.5:5555"
		req.Header.Set("X-Forwarded-For", hop)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
