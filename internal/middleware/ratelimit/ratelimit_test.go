package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_Allow(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: c.now})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request in the window should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own budget")
	}

	c.advance(30 * time.Second)
	if rl.Allow("1.2.3.4") {
		t.Fatal("steady traffic must not extend the window")
	}

	c.advance(30 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window should have reset")
	}

	if got := rl.GetMetrics(); got.TotalHits != 2 || got.ClientCount != 2 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 1, Now: c.now})
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	c.advance(11 * time.Minute)
	rl.Allow("5.6.7.8")
	rl.cleanupStaleEntries()

	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 1, Now: c.now})
	defer rl.Stop()

	onlyPost := func(r *http.Request) bool { return r.Method == http.MethodPost }
	h := rl.Middleware(func(*http.Request) string { return "ip" }, onlyPost, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, "/", nil))
		return w
	}

	if w := do(http.MethodPost); w.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", w.Code)
	}
	w := do(http.MethodPost)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if w := do(http.MethodGet); w.Code != http.StatusNoContent {
		t.Errorf("GET should not be limited, got %d", w.Code)
	}
}
