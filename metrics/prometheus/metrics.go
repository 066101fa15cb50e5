// Package prometheus provides Prometheus metrics for live media sessions.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "livevoice"

// Media kind labels for frame counters.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Reconnect reason labels.
const (
	ReasonGoAway = "go_away"
	ReasonClosed = "closed"
)

var (
	// sessionsActive is a gauge of currently active sessions.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active sessions",
		},
	)

	// sessionDuration is a histogram of session duration in seconds.
	sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Histogram of session duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	// mediaFramesSentTotal counts outbound media frames by kind.
	mediaFramesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_frames_sent_total",
			Help:      "Total number of media frames sent to the endpoint",
		},
		[]string{"kind"}, // kind: audio, video
	)

	// audioChunksPlayedTotal counts inbound audio chunks scheduled for playback.
	audioChunksPlayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_played_total",
			Help:      "Total number of inbound audio chunks scheduled for playback",
		},
	)

	// audioChunksDroppedTotal counts inbound audio chunks dropped before playback.
	audioChunksDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_dropped_total",
			Help:      "Total number of inbound audio chunks dropped before playback",
		},
	)

	// captureFramesDroppedTotal counts capture blocks dropped because the
	// outbound queue was full.
	captureFramesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_dropped_total",
			Help:      "Total number of captured audio blocks dropped due to backpressure",
		},
	)

	// reconnectsTotal counts reconnection attempts by trigger.
	reconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Total number of session reconnection attempts",
		},
		[]string{"reason"}, // reason: go_away, closed
	)

	// interruptionsTotal counts barge-in interruptions.
	interruptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total number of barge-in interruptions",
		},
	)

	// turnsCompletedTotal counts completed conversational turns.
	turnsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_completed_total",
			Help:      "Total number of completed conversational turns",
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		sessionsActive,
		sessionDuration,
		mediaFramesSentTotal,
		audioChunksPlayedTotal,
		audioChunksDroppedTotal,
		captureFramesDroppedTotal,
		reconnectsTotal,
		interruptionsTotal,
		turnsCompletedTotal,
	}
)

// RecordSessionStart records a session becoming active.
func RecordSessionStart() {
	sessionsActive.Inc()
}

// RecordSessionEnd records a session ending with its total duration.
func RecordSessionEnd(durationSeconds float64) {
	sessionsActive.Dec()
	sessionDuration.Observe(durationSeconds)
}

// RecordMediaFrameSent records an outbound media frame.
func RecordMediaFrameSent(kind string) {
	mediaFramesSentTotal.WithLabelValues(kind).Inc()
}

// RecordChunkPlayed records an inbound audio chunk scheduled for playback.
func RecordChunkPlayed() {
	audioChunksPlayedTotal.Inc()
}

// RecordChunkDropped records an inbound audio chunk dropped before playback.
func RecordChunkDropped() {
	audioChunksDroppedTotal.Inc()
}

// RecordCaptureDrop records a captured block dropped due to backpressure.
func RecordCaptureDrop() {
	captureFramesDroppedTotal.Inc()
}

// RecordReconnect records a reconnection attempt.
func RecordReconnect(reason string) {
	reconnectsTotal.WithLabelValues(reason).Inc()
}

// RecordInterruption records a barge-in interruption.
func RecordInterruption() {
	interruptionsTotal.Inc()
}

// RecordTurnCompleted records a completed conversational turn.
func RecordTurnCompleted() {
	turnsCompletedTotal.Inc()
}
