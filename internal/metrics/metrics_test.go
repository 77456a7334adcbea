package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledRecordsNothing(t *testing.T) {
	m := New(Config{Enabled: false, EnableLatency: true})
	m.Inc(MetricAuthorizeGranted)
	m.Observe(MetricAuthorizeLatency, time.Millisecond)

	if got := m.Value(MetricAuthorizeGranted); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if m.LatencyEnabled() {
		t.Fatal("latency must follow Enabled")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricAuthorizeDenied)
	m.Observe(MetricAuthorizeLatency, time.Second)
	if m.Value(MetricAuthorizeDenied) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestConcurrentIncrement(t *testing.T) {
	m := New(Config{Enabled: true})

	const goroutines = 16
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricStepUpRequired)
			}
		}()
	}
	wg.Wait()

	if got, want := m.Value(MetricStepUpRequired), uint64(goroutines*perG); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestHistogramBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		2 * time.Second,
	} {
		m.Observe(MetricAuthorizeLatency, d)
	}
	m.Observe(MetricAuthorizeGranted, time.Millisecond)

	snap := m.Snapshot()
	if got := snap.Sums[MetricAuthorizeLatency]; got != 2940*time.Millisecond {
		t.Fatalf("expected latency sum 2.94s, got %s", got)
	}
	buckets := snap.Histograms[MetricAuthorizeLatency]
	if len(buckets) != HistogramBucketCount {
		t.Fatalf("expected %d buckets, got %d", HistogramBucketCount, len(buckets))
	}
	for i, c := range buckets {
		if c != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, c)
		}
	}
}

func TestSnapshotOmitsHistogramFromCounters(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricTokensIssued)
	snap := m.Snapshot()
	if snap.Counters[MetricTokensIssued] != 1 {
		t.Fatalf("expected 1 issued, got %d", snap.Counters[MetricTokensIssued])
	}
	if _, ok := snap.Counters[MetricAuthorizeLatency]; ok {
		t.Fatal("latency id must not appear as a counter")
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("expected no histogram when latency disabled")
	}
}
