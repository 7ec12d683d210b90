package capture

import "sync/atomic"

// Metrics tracks capture pipeline counters across all engines in the
// process.
type Metrics struct {
	SessionsCreated  atomic.Int64
	SessionsClosed   atomic.Int64
	NavigateCount    atomic.Int64
	FramesCaptured   atomic.Int64
	DegradedCaptures atomic.Int64
	SubtitleBatches  atomic.Int64
	PlaybackReads    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		SessionsCreated:  m.SessionsCreated.Load(),
		SessionsClosed:   m.SessionsClosed.Load(),
		NavigateCount:    m.NavigateCount.Load(),
		FramesCaptured:   m.FramesCaptured.Load(),
		DegradedCaptures: m.DegradedCaptures.Load(),
		SubtitleBatches:  m.SubtitleBatches.Load(),
		PlaybackReads:    m.PlaybackReads.Load(),
	}
}

// MetricsSnapshot is a point-in-time copy of capture metrics.
type MetricsSnapshot struct {
	SessionsCreated  int64 `json:"sessions_created"`
	SessionsClosed   int64 `json:"sessions_closed"`
	NavigateCount    int64 `json:"navigate_count"`
	FramesCaptured   int64 `json:"frames_captured"`
	DegradedCaptures int64 `json:"degraded_captures"`
	SubtitleBatches  int64 `json:"subtitle_batches"`
	PlaybackReads    int64 `json:"playback_reads"`
}
