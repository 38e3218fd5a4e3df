package sessionauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
//
//	Docs: docs/metrics.md
type MetricID uint16

const (
	// MetricSessionCreated is an exported constant or variable used by the session middleware.
	MetricSessionCreated MetricID = iota
	// MetricSessionResumedDurable is an exported constant or variable used by the session middleware.
	MetricSessionResumedDurable
	// MetricSessionResumedMemory is an exported constant or variable used by the session middleware.
	MetricSessionResumedMemory
	// MetricSignInSuccess is an exported constant or variable used by the session middleware.
	MetricSignInSuccess
	// MetricSignInFailure is an exported constant or variable used by the session middleware.
	MetricSignInFailure
	// MetricSignOut is an exported constant or variable used by the session middleware.
	MetricSignOut
	// MetricCommitSuccess is an exported constant or variable used by the session middleware.
	MetricCommitSuccess
	// MetricCommitFailure is an exported constant or variable used by the session middleware.
	MetricCommitFailure
	// MetricCommitSkipped is an exported constant or variable used by the session middleware.
	MetricCommitSkipped
	// MetricDurableFallback is an exported constant or variable used by the session middleware.
	MetricDurableFallback
	// MetricMemoryEviction is an exported constant or variable used by the session middleware.
	MetricMemoryEviction
	// MetricPermissionDenied is an exported constant or variable used by the session middleware.
	MetricPermissionDenied

	metricIDCount
)

const latencyBucketCount = 16

// Metrics holds atomic counters and an optional commit-latency histogram.
// When disabled, all operations are no-ops.
//
//	Docs: docs/metrics.md
type Metrics struct {
	enabled bool
	latency bool

	counters [metricIDCount]atomic.Uint64

	// commitLatency buckets are powers of two microseconds:
	// bucket i counts commits with latency < 2^i µs; the last bucket is
	// the overflow.
	commitLatency [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters             map[MetricID]uint64
	CommitLatencyBuckets []uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig].
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments one counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(n)
}

// Get returns one counter's current value.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// ObserveCommitLatency records one commit duration into the histogram.
func (m *Metrics) ObserveCommitLatency(d time.Duration) {
	if m == nil || !m.latency {
		return
	}

	micros := d.Microseconds()
	bucket := 0
	for bucket < latencyBucketCount-1 && micros >= int64(1)<<bucket {
		bucket++
	}
	m.commitLatency[bucket].Add(1)
}

// Snapshot returns a deep copy of all counters and histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	if m.latency {
		snap.CommitLatencyBuckets = make([]uint64, latencyBucketCount)
		for i := range m.commitLatency {
			snap.CommitLatencyBuckets[i] = m.commitLatency[i].Load()
		}
	}
	return snap
}
