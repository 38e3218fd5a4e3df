package sessionauth

import (
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricSignInSuccess)
	m.Add(MetricSignInSuccess, 10)

	if got := m.Get(MetricSignInSuccess); got != 0 {
		t.Fatalf("disabled metrics counted %d", got)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricCommitSuccess)
	m.Add(MetricCommitSuccess, 2)
	m.Inc(MetricCommitFailure)

	if got := m.Get(MetricCommitSuccess); got != 3 {
		t.Fatalf("MetricCommitSuccess = %d, want 3", got)
	}
	if got := m.Get(MetricCommitFailure); got != 1 {
		t.Fatalf("MetricCommitFailure = %d, want 1", got)
	}

	// Out-of-range ids must not panic.
	m.Inc(metricIDCount + 5)
	if got := m.Get(metricIDCount + 5); got != 0 {
		t.Fatalf("out-of-range id counted %d", got)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSignOut)
	m.ObserveCommitLatency(time.Millisecond)
	if got := m.Get(MetricSignOut); got != 0 {
		t.Fatalf("nil metrics counted %d", got)
	}
	if snap := m.Snapshot(); len(snap.CommitLatencyBuckets) != 0 {
		t.Fatal("nil metrics snapshot must be empty")
	}
}

func TestCommitLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.ObserveCommitLatency(500 * time.Nanosecond) // < 1µs
	m.ObserveCommitLatency(3 * time.Microsecond)
	m.ObserveCommitLatency(time.Hour) // overflow bucket

	snap := m.Snapshot()
	if len(snap.CommitLatencyBuckets) != latencyBucketCount {
		t.Fatalf("bucket count = %d, want %d", len(snap.CommitLatencyBuckets), latencyBucketCount)
	}

	var total uint64
	for _, n := range snap.CommitLatencyBuckets {
		total += n
	}
	if total != 3 {
		t.Fatalf("histogram total = %d, want 3", total)
	}
	if snap.CommitLatencyBuckets[0] != 1 {
		t.Fatalf("sub-microsecond bucket = %d, want 1", snap.CommitLatencyBuckets[0])
	}
	if snap.CommitLatencyBuckets[latencyBucketCount-1] != 1 {
		t.Fatalf("overflow bucket = %d, want 1", snap.CommitLatencyBuckets[latencyBucketCount-1])
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionCreated)

	snap := m.Snapshot()
	snap.Counters[MetricSessionCreated] = 99

	if got := m.Get(MetricSessionCreated); got != 1 {
		t.Fatalf("snapshot mutation leaked into live metrics: %d", got)
	}
}
