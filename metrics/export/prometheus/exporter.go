package prometheus

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sessionauth "github.com/parlorworks/sessionauth"
)

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
	AuditDropped() uint64
}

var counterDefs = []struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}{
	{sessionauth.MetricSessionCreated, "sessionauth_session_created_total", "Fresh anonymous sessions minted."},
	{sessionauth.MetricSessionResumedDurable, "sessionauth_session_resumed_durable_total", "Sessions hydrated from the durable tier."},
	{sessionauth.MetricSessionResumedMemory, "sessionauth_session_resumed_memory_total", "Sessions hydrated from the memory tier."},
	{sessionauth.MetricSignInSuccess, "sessionauth_sign_in_success_total", "Successful sign-ins."},
	{sessionauth.MetricSignInFailure, "sessionauth_sign_in_failure_total", "Failed sign-ins."},
	{sessionauth.MetricSignOut, "sessionauth_sign_out_total", "Sign-outs of bound sessions."},
	{sessionauth.MetricCommitSuccess, "sessionauth_commit_success_total", "Session commits written to a tier."},
	{sessionauth.MetricCommitFailure, "sessionauth_commit_failure_total", "Session commits that failed to persist."},
	{sessionauth.MetricCommitSkipped, "sessionauth_commit_skipped_total", "Clean sessions that skipped the commit."},
	{sessionauth.MetricDurableFallback, "sessionauth_durable_fallback_total", "Durable-tier outages degraded to the memory tier."},
	{sessionauth.MetricMemoryEviction, "sessionauth_memory_eviction_total", "Expired memory-tier sessions swept."},
	{sessionauth.MetricPermissionDenied, "sessionauth_permission_denied_total", "Permission checks that failed."},
}

// Exporter renders sessionauth metrics in Prometheus text exposition format.
//
//	Docs: docs/metrics.md
type Exporter struct {
	source metricsSource
}

// NewExporter creates an exporter that reads from the given
// [sessionauth.Manager].
//
//	Docs: docs/metrics.md
func NewExporter(manager *sessionauth.Manager) *Exporter {
	return &Exporter{source: manager}
}

// NewExporterFromSource creates an exporter from a custom metrics source.
//
//	Docs: docs/metrics.md
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
//
//	Docs: docs/metrics.md
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
//
//	Docs: docs/metrics.md
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()

	var b strings.Builder
	b.Grow(8192)

	for _, def := range counterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	if len(snapshot.CommitLatencyBuckets) > 0 {
		writeCommitLatency(&b, snapshot.CommitLatencyBuckets)
	}

	writeCounter(&b, "sessionauth_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", dropped)

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(help)
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

// writeCommitLatency renders the power-of-two-microsecond buckets as a
// cumulative Prometheus histogram with second-denominated bounds.
func writeCommitLatency(b *strings.Builder, buckets []uint64) {
	const name = "sessionauth_commit_latency_seconds"

	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteString(" Session commit latency.\n")
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" histogram\n")

	var cumulative uint64
	for i, count := range buckets {
		cumulative += count
		if i == len(buckets)-1 {
			break
		}
		upperMicros := uint64(1) << i
		b.WriteString(name)
		b.WriteString(`_bucket{le="`)
		b.WriteString(strconv.FormatFloat(float64(upperMicros)/1e6, 'g', -1, 64))
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative, 10))
		b.WriteByte('\n')
	}

	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", name, cumulative)
	fmt.Fprintf(b, "%s_count %d\n", name, cumulative)
}
