package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filevault/internal/config"
	"filevault/internal/database/databasetest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func storeContract(t *testing.T, store Store, c *clock) {
	t.Helper()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		w, err := store.Increment(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Increment %d: %v", i, err)
		}
		if w.Count != i {
			t.Errorf("count = %d, want %d", w.Count, i)
		}
		if !w.ResetAt.Equal(c.t.Add(time.Minute)) {
			t.Errorf("reset at = %v, want %v", w.ResetAt, c.t.Add(time.Minute))
		}
	}

	other, err := store.Increment(ctx, "other", time.Minute)
	if err != nil || other.Count != 1 {
		t.Errorf("independent key = %+v, %v", other, err)
	}

	start := c.t
	c.t = start.Add(time.Minute + time.Second)
	w, err := store.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Increment after window: %v", err)
	}
	if w.Count != 1 || !w.ResetAt.Equal(c.t.Add(time.Minute)) {
		t.Errorf("new window = %+v", w)
	}

	if err := store.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	w, err = store.Increment(ctx, "k", time.Minute)
	if err != nil || w.Count != 1 {
		t.Errorf("after reset = %+v, %v", w, err)
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = c.now

	storeContract(t, s, c)

	// "other" истек, "k" еще жив
	if s.Len() != 1 {
		t.Errorf("len after cleanup = %d, want 1", s.Len())
	}
}

func TestSQLStore(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	db := databasetest.New(t)
	s := NewSQLStore(db)
	s.now = c.now

	storeContract(t, s, c)

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM rate_limits`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows after cleanup = %d, want 1", n)
	}
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (Window, error) {
	return Window{}, errors.New("down")
}
func (failingStore) Reset(context.Context, string) error { return nil }
func (failingStore) Cleanup(context.Context) error       { return nil }

func TestLimiterMiddleware(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now

	l := New(store, "share", config.LimitConfig{Window: 5 * time.Minute, MaxRequests: 2}, MessageShare)
	l.now = c.now

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/shares/info/x", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i, wantRemaining := range []string{"1", "0"} {
		rec := do("10.0.0.1:1234")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d remaining = %s, want %s", i, got, wantRemaining)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("limit header = %s", got)
		}
	}

	rec := do("10.0.0.1:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	var body struct {
		Message    string `json:"message"`
		RetryAfter int64  `json:"retryAfter"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != MessageShare || body.RetryAfter != 300 {
		t.Errorf("body = %+v", body)
	}
	if rec.Header().Get("X-RateLimit-Reset") != "2026-01-01T00:05:00Z" {
		t.Errorf("reset header = %s", rec.Header().Get("X-RateLimit-Reset"))
	}

	if rec := do("10.0.0.2:1234"); rec.Code != http.StatusNoContent {
		t.Errorf("other client status = %d", rec.Code)
	}

	c.t = c.t.Add(5*time.Minute + time.Second)
	if rec := do("10.0.0.1:1234"); rec.Code != http.StatusNoContent {
		t.Errorf("after window status = %d", rec.Code)
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(failingStore{}, "api", config.LimitConfig{Window: time.Minute, MaxRequests: 1}, MessageAPI)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
