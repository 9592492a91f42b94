package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func ok(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
}

func hit(h httprouter.Handle, remote string) int {
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	r.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h(rec, r, nil)
	return rec.Code
}

func TestLimitThrottlesPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Limit(ok)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:5000"))
	// a different source port is the same client
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:5002"))

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:5000"))
}

func TestSweepDropsIdleVisitors(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	rl.getLimiter("10.0.0.1")
	now = now.Add(5 * time.Minute)
	rl.getLimiter("10.0.0.2")

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.2")
}
