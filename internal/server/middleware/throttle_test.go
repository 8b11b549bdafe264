package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storycard/storycard/internal/core/throttle"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newThrottled(t *testing.T, limit int) (http.Handler, *testClock, *int) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := throttle.New()
	limiter.Clock = clock.Now

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	policy := throttle.Policy{Name: "proxy-image", Limit: limit, Window: time.Minute}
	return RequestID(Throttle(limiter, policy)(next)), clock, &calls
}

func throttledRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/proxy-image?url=x", nil)
	req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
	return req
}

func TestThrottle_AllowsUpToLimitThenRejects(t *testing.T) {
	collector := setupTelemetry(t)
	handler, clock, calls := newThrottled(t, 30)

	for i := 1; i <= 30; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, throttledRequest("203.0.113.7"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "30", rec.Header().Get(RateLimitLimitHeader))
		assert.Equal(t, strconv.Itoa(30-i), rec.Header().Get(RateLimitRemainingHeader))
		clock.now = clock.now.Add(time.Second)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest("203.0.113.7"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 30, *calls, "rejected request must not reach the handler")

	retryAfter, err := strconv.Atoi(rec.Header().Get(RetryAfterHeader))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 60)
	assert.Equal(t, 30, retryAfter)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
	assert.EqualValues(t, 30, body.Error.Details["retry_after_seconds"])

	assert.Greater(t, collector.CountMetricsByName("throttle_decisions_total"), 0)
	assert.Greater(t, collector.CountMetricsByName("errors_total"), 0)
}

func TestThrottle_ClientsAreIndependent(t *testing.T) {
	handler, _, _ := newThrottled(t, 1)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest("198.51.100.1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest("198.51.100.1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest("198.51.100.2"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottle_WindowResets(t *testing.T) {
	handler, clock, _ := newThrottled(t, 1)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest("198.51.100.9"))
	require.Equal(t, http.StatusOK, rec.Code)

	clock.now = clock.now.Add(time.Minute)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest("198.51.100.9"))
	require.Equal(t, http.StatusOK, rec.Code)
}
