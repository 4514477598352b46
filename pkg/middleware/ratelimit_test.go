package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hit(h http.Handler, remote string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/comments", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_WithinBurst(t *testing.T) {
	h := NewRateLimiter(1, 5, discardLogger()).Middleware(okHandler())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1:1234"), "request %d", i+1)
	}
}

func TestRateLimiter_ExceedingBurstReturns429(t *testing.T) {
	h := NewRateLimiter(0.001, 2, discardLogger()).Middleware(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:2"))

	req := httptest.NewRequest(http.MethodPost, "/api/comments", nil)
	req.RemoteAddr = "10.0.0.1:3"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestRateLimiter_PerIPBuckets(t *testing.T) {
	h := NewRateLimiter(0.001, 1, discardLogger()).Middleware(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1"))
}

func TestRateLimiter_SweepEvictsIdleVisitors(t *testing.T) {
	l := NewRateLimiter(10, 10, discardLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.limiterFor("1.1.1.1")
	now = now.Add(2 * time.Minute)
	l.limiterFor("2.2.2.2")
	assert.Equal(t, 2, l.size())

	now = now.Add(2 * time.Minute)
	l.sweep()
	assert.Equal(t, 1, l.size())
}

func TestRateLimiter_RunStopsOnCancel(t *testing.T) {
	l := NewRateLimiter(10, 10, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "203.0.113.9:5000", "203.0.113.9"},
		{"forwarded header ignored", "198.51.100.1, 10.0.0.1", "", "10.0.0.2:1", "10.0.0.2"},
		{"real ip header ignored", "", "198.51.100.7", "10.0.0.2:1", "10.0.0.2"},
		{"bare host from RealIP", "", "", "198.51.100.7", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
