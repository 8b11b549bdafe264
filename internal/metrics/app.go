package metrics

import (
	"time"

	"github.com/storycard/storycard/internal/observability"
)

// Application-level metric names
const (
	ThrottleDecisionsTotal = "throttle_decisions_total"
	ResolveTotal           = "youtube_resolve_total"
	ImageProxyFetchTotal   = "image_proxy_fetch_total"
	StoryRenderDuration    = "story_render_duration_ms"
	StoryRenderTotal       = "story_render_total"
	ServerStartTime        = "app_server_start_time_seconds"
)

// RecordThrottleDecision counts an allow/reject decision for a throttle policy.
func RecordThrottleDecision(policy string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ThrottleDecisionsTotal,
			1,
			map[string]string{
				"policy":   policy,
				"decision": decision,
			},
		)
	}
}

// RecordResolve counts a metadata provider attempt.
func RecordResolve(provider string, success bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ResolveTotal,
			1,
			map[string]string{
				"provider": provider,
				"outcome":  outcome(success),
			},
		)
	}
}

// RecordImageProxyFetch counts an image proxy fetch by host.
func RecordImageProxyFetch(host string, success bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ImageProxyFetchTotal,
			1,
			map[string]string{
				"host":    host,
				"outcome": outcome(success),
			},
		)
	}
}

// RecordStoryRender records a story rasterization.
func RecordStoryRender(success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"outcome": outcome(success)}
	_ = observability.TelemetrySystem.Counter(StoryRenderTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(StoryRenderDuration, duration, labels)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
