// Package metrics exposes prometheus collectors for the cutroom daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Timeline metrics
	itemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_timeline_items_dropped_total",
		Help: "Track items dropped during plan building, by reason",
	}, []string{"reason"}) // reason=missing_id|unknown_type|invalid_display|zero_duration

	planBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cutroom_timeline_plan_builds_total",
		Help: "Total number of render plan builds",
	})

	planEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cutroom_timeline_plan_entries",
		Help: "Entries in the most recently built render plan",
	})

	// Audio visualization metrics
	audioDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cutroom_audioviz_decode_failures_total",
		Help: "Audio decode failures degraded to silence",
	})

	audioFrameLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_audioviz_frame_lookups_total",
		Help: "Frame data lookups by cache outcome",
	}, []string{"outcome"}) // outcome=hit|miss

	audioCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_audioviz_cache_evictions_total",
		Help: "Decoded-audio cache evictions by cause",
	}, []string{"cause"}) // cause=lru|ttl

	// Render orchestration metrics
	rendersStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cutroom_renders_started_total",
		Help: "Render jobs submitted to the compute provider",
	})

	rendersFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_renders_finished_total",
		Help: "Render jobs reaching a terminal state, by outcome",
	}, []string{"outcome"}) // outcome=completed|failed

	pollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cutroom_render_poll_ticks_total",
		Help: "Render progress poll round trips",
	})

	bootstraps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutroom_render_bootstraps_total",
		Help: "Infrastructure bootstrap runs by outcome",
	}, []string{"outcome"}) // outcome=cached|resolved|failed
)

// IncItemDropped records a dropped track item.
func IncItemDropped(reason string) {
	itemsDropped.WithLabelValues(reason).Inc()
}

// ObservePlanBuild records a completed plan build.
func ObservePlanBuild(entries int) {
	planBuilds.Inc()
	planEntries.Set(float64(entries))
}

// IncAudioDecodeFailure records a decode failure degraded to silence.
func IncAudioDecodeFailure() {
	audioDecodeFailures.Inc()
}

// IncFrameLookup records a frame-memo lookup outcome ("hit" or "miss").
func IncFrameLookup(outcome string) {
	audioFrameLookups.WithLabelValues(outcome).Inc()
}

// IncCacheEviction records a decoded-audio cache eviction ("lru" or "ttl").
func IncCacheEviction(cause string) {
	audioCacheEvictions.WithLabelValues(cause).Inc()
}

// IncRenderStarted records a render submission.
func IncRenderStarted() {
	rendersStarted.Inc()
}

// IncRenderFinished records a terminal render outcome ("completed" or "failed").
func IncRenderFinished(outcome string) {
	rendersFinished.WithLabelValues(outcome).Inc()
}

// IncPollTick records one polling round trip.
func IncPollTick() {
	pollTicks.Inc()
}

// IncBootstrap records a bootstrap run outcome ("cached", "resolved" or "failed").
func IncBootstrap(outcome string) {
	bootstraps.WithLabelValues(outcome).Inc()
}
