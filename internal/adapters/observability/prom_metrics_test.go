package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs(nil)

	obs.IncCounter("factory_published_total", 5)
	if got := testutil.ToFloat64(obs.counters["factory_published_total"]); got != 5 {
		t.Fatalf("expected published counter 5, got %f", got)
	}

	obs.IncCounter("factory_schema_rejections_total", 2)
	if got := testutil.ToFloat64(obs.counters["factory_schema_rejections_total"]); got != 2 {
		t.Fatalf("expected schema rejection counter 2, got %f", got)
	}

	obs.SetGauge("factory_outbox_size_bytes", 42)
	if got := testutil.ToFloat64(obs.gauges["factory_outbox_size_bytes"]); got != 42 {
		t.Fatalf("expected outbox gauge 42, got %f", got)
	}

	obs.ObserveLatency("factory_decision_latency_seconds", 0.5)
	hCollector := obs.histos["factory_decision_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("factory_no_such_metric_total", 1)
}
