package throttle

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := New()
	limiter.Clock = clock.Now
	return limiter, clock
}

func TestCheckAllowsExactlyLimitPerWindow(t *testing.T) {
	for _, limit := range []int{1, 3, 10, 30} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			limiter, clock := newTestLimiter()

			for i := 1; i <= limit; i++ {
				res := limiter.Check("k", limit, time.Minute)
				require.True(t, res.Allowed, "call %d should be allowed", i)
				require.Equal(t, limit-i, res.Remaining)
				require.Zero(t, res.RetryAfterSeconds)
				clock.Advance(time.Second)
			}

			res := limiter.Check("k", limit, time.Minute)
			require.False(t, res.Allowed)
			require.Zero(t, res.Remaining)
		})
	}
}

func TestCheckResetsAfterWindow(t *testing.T) {
	limiter, clock := newTestLimiter()

	require.True(t, limiter.Check("k", 2, time.Minute).Allowed)
	require.True(t, limiter.Check("k", 2, time.Minute).Allowed)
	require.False(t, limiter.Check("k", 2, time.Minute).Allowed)

	clock.Advance(time.Minute)

	res := limiter.Check("k", 2, time.Minute)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.Remaining)

	entry, ok := limiter.Snapshot("k")
	require.True(t, ok)
	require.Equal(t, 1, entry.Count)
	require.Equal(t, clock.now, entry.WindowStart)
}

func TestCheckRetryAfterBounds(t *testing.T) {
	limiter, clock := newTestLimiter()
	window := 60 * time.Second

	require.True(t, limiter.Check("k", 1, window).Allowed)

	for _, elapsed := range []time.Duration{0, 500 * time.Millisecond, 30 * time.Second, 59*time.Second + 999*time.Millisecond} {
		clock.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(elapsed)
		res := limiter.Check("k", 1, window)
		require.False(t, res.Allowed)
		require.GreaterOrEqual(t, res.RetryAfterSeconds, 1)
		require.LessOrEqual(t, res.RetryAfterSeconds, 60)
	}

	clock.now = time.Date(2025, 1, 1, 0, 0, 30, 0, time.UTC)
	require.Equal(t, 30, limiter.Check("k", 1, window).RetryAfterSeconds)

	clock.now = time.Date(2025, 1, 1, 0, 0, 30, int(400*time.Millisecond), time.UTC)
	require.Equal(t, 30, limiter.Check("k", 1, window).RetryAfterSeconds)
}

func TestCheckRejectedCallsDoNotExtendWindow(t *testing.T) {
	limiter, clock := newTestLimiter()

	require.True(t, limiter.Check("k", 1, time.Minute).Allowed)
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		require.False(t, limiter.Check("k", 1, time.Minute).Allowed)
	}

	clock.Advance(10 * time.Second)
	require.True(t, limiter.Check("k", 1, time.Minute).Allowed)
}

func TestCheckKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter()

	require.True(t, limiter.Check("metadata:1.1.1.1", 1, time.Minute).Allowed)
	require.False(t, limiter.Check("metadata:1.1.1.1", 1, time.Minute).Allowed)
	require.True(t, limiter.Check("metadata:2.2.2.2", 1, time.Minute).Allowed)
	require.True(t, limiter.Check("proxy-image:1.1.1.1", 1, time.Minute).Allowed)
}

func TestCheckPurgesStaleEntries(t *testing.T) {
	limiter, clock := newTestLimiter()

	limiter.Check("old", 10, time.Minute)
	clock.Advance(2 * time.Minute)
	limiter.Check("recent", 10, time.Minute)
	require.Equal(t, 2, limiter.Len())

	clock.Advance(3*time.Minute + time.Second)
	limiter.Check("fresh", 10, time.Minute)

	_, ok := limiter.Snapshot("old")
	require.False(t, ok, "entry older than five windows should be purged")
	_, ok = limiter.Snapshot("recent")
	require.True(t, ok)
	require.Equal(t, 2, limiter.Len())
}

func TestCheckPurgeUsesEachEntrysWindow(t *testing.T) {
	limiter, clock := newTestLimiter()
	long := Policy{Name: "long", Limit: 1, Window: 10 * time.Minute}
	short := Policy{Name: "short", Limit: 10, Window: time.Minute}

	require.True(t, limiter.CheckPolicy(long, "10.0.0.1").Allowed)
	require.False(t, limiter.CheckPolicy(long, "10.0.0.1").Allowed)

	clock.Advance(6 * time.Minute)
	require.True(t, limiter.CheckPolicy(short, "10.0.0.1").Allowed)

	res := limiter.CheckPolicy(long, "10.0.0.1")
	require.False(t, res.Allowed, "a shorter policy must not purge a live window")
	require.Equal(t, 240, res.RetryAfterSeconds)

	clock.Advance(4 * time.Minute)
	require.True(t, limiter.CheckPolicy(long, "10.0.0.1").Allowed)
}

func TestRetryAfterSecondsIsAtLeastOne(t *testing.T) {
	require.Equal(t, 1, retryAfterSeconds(0))
	require.Equal(t, 1, retryAfterSeconds(-time.Second))
	require.Equal(t, 1, retryAfterSeconds(time.Millisecond))
	require.Equal(t, 60, retryAfterSeconds(time.Minute))
}

func TestCheckPolicyBuildsRouteKey(t *testing.T) {
	limiter, _ := newTestLimiter()
	policy := Policy{Name: "proxy-image", Limit: 30, Window: time.Minute}

	res := limiter.CheckPolicy(policy, "10.0.0.1")
	require.True(t, res.Allowed)
	require.Equal(t, 29, res.Remaining)

	entry, ok := limiter.Snapshot("proxy-image:10.0.0.1")
	require.True(t, ok)
	require.Equal(t, 1, entry.Count)
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *Limiter
	res := limiter.Check("k", 5, time.Minute)
	require.True(t, res.Allowed)
	require.Equal(t, 0, limiter.Len())
}
