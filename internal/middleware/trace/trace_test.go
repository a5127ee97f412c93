package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMiddleware_AssignsRequestIDAndObserves(t *testing.T) {
	var (
		route   string
		code    int
		elapsed time.Duration
		seenID  string
	)
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, func(r string, c int, d time.Duration) {
		route, code, elapsed = r, c, d
	})
	calls := 0
	m.now = func() time.Time {
		calls++
		return time.Unix(0, 0).Add(time.Duration(calls) * 25 * time.Millisecond)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	})

	rr := httptest.NewRecorder()
	m.Middleware(mux).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))

	if !strings.HasPrefix(seenID, "req_") || len(seenID) != 20 {
		t.Errorf("request id = %q, want req_ plus 16 hex chars", seenID)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("response header id = %q, want %q", got, seenID)
	}
	if code != http.StatusCreated {
		t.Errorf("observed code = %d, want 201", code)
	}
	if elapsed != 25*time.Millisecond {
		t.Errorf("observed elapsed = %v, want 25ms", elapsed)
	}
	if route == "" {
		t.Error("observed route should not be empty")
	}
}

func TestMiddleware_KeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("request id = %q, want abc-123", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 20 {
		t.Errorf("oversized caller id should be replaced, got %q", seen)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
