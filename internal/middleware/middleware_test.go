package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aditya/go-boleia/internal/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })
	return logs
}

func TestLoggerScopesRequestID(t *testing.T) {
	logs := observeLogs(t)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Logger)
	r.Get("/rides/{id}", func(w http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "inside")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rides/42", nil))

	inside := logs.FilterMessage("inside").All()
	if len(inside) != 1 || inside[0].ContextMap()["request_id"] == "" {
		t.Fatalf("request scoped entry missing request_id: %v", inside)
	}

	reqs := logs.FilterMessage("request").All()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request entry, got %d", len(reqs))
	}
	fields := reqs[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", fields["status"])
	}
	if fields["path"] != "/rides/42" {
		t.Errorf("path = %v", fields["path"])
	}
}

func TestRecoveryWritesJSON500(t *testing.T) {
	logs := observeLogs(t)

	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/bookings", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal_error" {
		t.Errorf("error = %q", body["error"])
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("panic was not logged")
	}
}

func TestRecoveryRepanicsOnAbort(t *testing.T) {
	observeLogs(t)

	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestNewRelicMiddlewareDisabled(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	NewRelicMiddleware(nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("next handler not called")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"Remote address", "", "10.0.0.7:52311", "10.0.0.7"},
		{"First forwarded hop", "41.220.1.9, 10.0.0.1", "10.0.0.1:80", "41.220.1.9"},
		{"Forwarded with spaces", "  41.220.1.9 ", "10.0.0.1:80", "41.220.1.9"},
		{"Bare remote address", "", "10.0.0.7", "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashRequestBindsEndpointAndBody(t *testing.T) {
	body := []byte(`{"ride_id":"r1","seats_requested":2}`)
	base := hashRequest(http.MethodPost, "/v1/bookings", body)

	if base != hashRequest(http.MethodPost, "/v1/bookings", body) {
		t.Error("hash is not stable")
	}
	if base == hashRequest(http.MethodPost, "/v1/bookings", []byte(`{"ride_id":"r1","seats_requested":3}`)) {
		t.Error("different body produced the same hash")
	}
	if base == hashRequest(http.MethodPatch, "/v1/bookings", body) {
		t.Error("different method produced the same hash")
	}
	if base == hashRequest(http.MethodPost, "/v1/rides", body) {
		t.Error("different path produced the same hash")
	}
}

func TestRoutePatternUnmatched(t *testing.T) {
	if got := routePattern(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != "unmatched" {
		t.Errorf("routePattern() = %q, want unmatched", got)
	}
}
