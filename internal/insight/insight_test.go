package insight

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokeometer/internal/cache"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
	"brokeometer/internal/storage"
)

var testExpenses = []core.Expense{
	{ID: "1", Category: core.Food, Amount: 80, Notes: "Ice Cream"},
	{ID: "2", Category: core.Food, Amount: 90.5, Notes: "ice cream "},
	{ID: "3", Category: core.Transport, Amount: 30},
}

func TestSections(t *testing.T) {
	text := "intro\n### THE READ\nyou bought ice cream\ntwice\n\n### THE DAMAGE\n\nbroke\n###   \n"
	got := Sections(text)
	assert.Equal(t, []Section{
		{Title: "intro", Body: ""},
		{Title: "THE READ", Body: "you bought ice cream\ntwice"},
		{Title: "THE DAMAGE", Body: "broke"},
	}, got)
	assert.Empty(t, Sections("  "))
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(testExpenses, core.UserBudget{MonthlyLimit: 5000}, "January 2024")
	require.NoError(t, err)

	for _, want := range []string{
		"- Month: January 2024",
		"- Total Budget: ₹5000",
		"- Total Spent: ₹200.50",
		"- Remaining: ₹4799.50",
		`{"ice cream":2}`,
		`{"Food":170.5,"Transport":30}`,
		"### THE READ\n(The roast goes here.",
		"### A FINAL WORD OF ENCOURAGEMENT",
	} {
		assert.Contains(t, prompt, want)
	}
}

func newGeminiTestServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		raw, _ := io.ReadAll(r.Body)
		if assert.NoError(t, json.Unmarshal(raw, &req)) && assert.Len(t, req.Contents, 1) {
			assert.Contains(t, req.Contents[0].Parts[0].Text, "broke-o-meter")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(t *testing.T, srv *httptest.Server) *GeminiGenerator {
	t.Helper()
	g, err := NewGeminiGenerator(context.Background(), "test-key", "test-model", 5*time.Second, log.Discard(),
		WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	return g
}

func TestGeminiGenerator(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "joins parts of the first candidate",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"role":"model","parts":[{"text":"### THE READ\n"},{"text":"three ice creams"}]}}]}`,
			want:   "### THE READ\nthree ice creams",
		},
		{
			name:   "empty answer",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
			want:   EmptyText,
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			want:   EmptyText,
		},
		{
			name:   "blocked prompt",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			want:   FallbackText,
		},
		{
			name:   "api error",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`,
			want:   FallbackText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			g := newTestGemini(t, newGeminiTestServer(t, tt.status, tt.body, &calls))

			got := g.Generate(context.Background(), testExpenses, core.UserBudget{MonthlyLimit: 5000}, "January 2024")
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, calls.Load(), int32(1))
		})
	}
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "", 0, nil)
	assert.Error(t, err)
}

type countingGenerator struct {
	calls atomic.Int32
	text  string
}

func (g *countingGenerator) Generate(context.Context, []core.Expense, core.UserBudget, string) string {
	g.calls.Add(1)
	return g.text
}

func TestCachedGenerator(t *testing.T) {
	ctx := context.Background()
	next := &countingGenerator{text: "### THE READ\nfine"}
	g := NewCachedGenerator(next, cache.NewLRUCache[string](8, time.Minute))
	b := core.UserBudget{MonthlyLimit: 5000}

	assert.Equal(t, next.text, g.Generate(ctx, testExpenses, b, "January 2024"))
	assert.Equal(t, next.text, g.Generate(ctx, testExpenses, b, "January 2024"))
	assert.EqualValues(t, 1, next.calls.Load())

	g.Generate(ctx, testExpenses[:1], b, "January 2024")
	assert.EqualValues(t, 2, next.calls.Load(), "different log misses the cache")

	next.text = FallbackText
	g.Generate(ctx, testExpenses, b, "February 2024")
	g.Generate(ctx, testExpenses, b, "February 2024")
	assert.EqualValues(t, 4, next.calls.Load(), "fallback answers are retried")
}

func TestServiceRefresh(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(ctx, storage.KeyBudget, []byte(`{"monthlyLimit":5000,"weeklyLimit":1000}`)))

	svc := NewService(store, StaticGenerator("### THE DAMAGE\nok"), log.Discard())
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) }

	_, err := svc.Latest(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	r, err := svc.Refresh(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "March 2024", r.Period)

	latest, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Text, latest.Text)
	assert.True(t, r.GeneratedAt.Equal(latest.GeneratedAt))
	assert.Equal(t, []Section{{Title: "THE DAMAGE", Body: "ok"}}, Sections(latest.Text))
}

func TestAsyncRefresher(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, StaticGenerator("async"), log.Discard())
	a := NewAsyncRefresher(svc, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.RequestRefresh(ctx, "May 2024"))
	cancel()
	a.Wait()

	r, err := LatestResult(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "async", r.Text)
	assert.True(t, strings.HasPrefix(r.Period, "May"))
}
