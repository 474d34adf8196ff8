package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unidiary/internal/log"
)

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
	m := NewMiddleware(logger, func(*http.Request) string { return "198.51.100.7" })

	var seenID string
	var seenLogger *log.Logger
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		path       string
		upstreamID string
		wantFailed int64
	}{
		{"generated id", "/api/expenses", "", 0},
		{"upstream id is echoed", "/api/expenses", "abc-123", 0},
		{"server error counts as failure", "/boom", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.upstreamID != "" {
				req.Header.Set(HeaderRequestID, tt.upstreamID)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			got := rr.Header().Get(HeaderRequestID)
			if got == "" || got != seenID {
				t.Fatalf("response id %q, context id %q", got, seenID)
			}
			if tt.upstreamID != "" && got != tt.upstreamID {
				t.Fatalf("expected upstream id %q, got %q", tt.upstreamID, got)
			}
			if tt.upstreamID == "" && !strings.HasPrefix(got, "req_") {
				t.Fatalf("generated id %q lacks prefix", got)
			}
			if seenLogger == nil || seenLogger.Component() != log.ComponentHTTP {
				t.Fatalf("handler did not receive the request logger")
			}
			if m.GetMetrics().FailedRequests != tt.wantFailed {
				t.Fatalf("failed requests = %d, want %d", m.GetMetrics().FailedRequests, tt.wantFailed)
			}
		})
	}

	if m.GetMetrics().TotalRequests != 3 {
		t.Fatalf("total requests = %d", m.GetMetrics().TotalRequests)
	}
	if !strings.Contains(buf.String(), `"client_ip":"198.51.100.7"`) {
		t.Fatalf("client ip not logged: %s", buf.String())
	}
}

func TestHandler_OversizedRequestIDReplaced(t *testing.T) {
	m := NewMiddleware(log.Nop(), nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 65))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); len(got) > 64 {
		t.Fatalf("oversized id should be replaced, got %q", got)
	}
}
