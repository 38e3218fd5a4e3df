package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	sessionauth "github.com/parlorworks/sessionauth"
)

type fakeSource struct {
	snapshot sessionauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessionauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderCounters(t *testing.T) {
	src := fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricSessionCreated: 7,
				sessionauth.MetricCommitSuccess:  3,
			},
		},
		dropped: 2,
	}

	out := NewExporterFromSource(src).Render()

	for _, want := range []string{
		"sessionauth_session_created_total 7",
		"sessionauth_commit_success_total 3",
		"sessionauth_commit_skipped_total 0",
		"sessionauth_audit_dropped_total 2",
		"# TYPE sessionauth_session_created_total counter",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCommitLatencyHistogram(t *testing.T) {
	buckets := make([]uint64, 16)
	buckets[0] = 1 // < 1µs
	buckets[2] = 2 // < 4µs
	buckets[15] = 1

	src := fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters:             map[sessionauth.MetricID]uint64{},
			CommitLatencyBuckets: buckets,
		},
	}

	out := NewExporterFromSource(src).Render()

	for _, want := range []string{
		"# TYPE sessionauth_commit_latency_seconds histogram",
		`sessionauth_commit_latency_seconds_bucket{le="1e-06"} 1`,
		`sessionauth_commit_latency_seconds_bucket{le="4e-06"} 3`,
		`sessionauth_commit_latency_seconds_bucket{le="+Inf"} 4`,
		"sessionauth_commit_latency_seconds_count 4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHandlerContentType(t *testing.T) {
	src := fakeSource{snapshot: sessionauth.MetricsSnapshot{Counters: map[sessionauth.MetricID]uint64{}}}

	rec := httptest.NewRecorder()
	NewExporterFromSource(src).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("Content-Type = %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty body")
	}
}

func TestNilExporterRendersEmpty(t *testing.T) {
	var e *Exporter
	if out := e.Render(); out != "" {
		t.Fatalf("nil exporter rendered %q", out)
	}
	if out := NewExporter(nil).Render(); out == "" {
		t.Fatal("nil manager source still renders zeroed counters")
	}
}
