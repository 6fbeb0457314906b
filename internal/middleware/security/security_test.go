package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"brokeometer/internal/log"
)

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector(log.Discard())

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct", "203.0.113.9:5000", nil, "203.0.113.9"},
		{"untrusted proxy headers ignored", "203.0.113.9:5000", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.9"},
		{"trusted proxy forwarded for", "10.0.0.2:5000", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "198.51.100.7"},
		{"trusted proxy real ip", "127.0.0.1:5000", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
		{"trusted proxy garbage header", "192.168.1.1:5000", map[string]string{"X-Forwarded-For": "nope"}, "192.168.1.1"},
		{"no port", "203.0.113.9", nil, "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_AddTrustedProxy(t *testing.T) {
	d := NewDetector(log.Discard())
	r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	r.RemoteAddr = "203.0.113.9:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")

	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Fatalf("before trusting: got %q", got)
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatal(err)
	}
	if got := d.ExtractClientIP(r); got != "198.51.100.7" {
		t.Fatalf("after trusting: got %q", got)
	}
	if err := d.AddTrustedProxy("proxy.local"); err == nil {
		t.Fatal("expected error for non-CIDR value")
	}
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector(log.Discard())
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	paths := []string{"/api/expenses", "/.env", "/api/state?q=union+select", "/wp-admin/"}
	for _, p := range paths {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: suspicious requests must pass through, got %d", p, w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	r.Header.Set("User-Agent", "sqlmap/1.7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got := d.GetMetrics().SuspiciousRequests; got != 3 {
		t.Errorf("SuspiciousRequests = %d, want 3", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	r.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}
