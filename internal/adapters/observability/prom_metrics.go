package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// PromObs backs the Observability port with Prometheus metrics and
// structured slog output.
type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs(logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}

	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_published_total",
		Help: "Messages successfully handed to the bus.",
	})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_consumed_total",
		Help: "Messages received and decoded by agents.",
	})
	schemaRejects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_schema_rejections_total",
		Help: "Messages dropped at the subscribe boundary due to schema mismatch.",
	})
	outOfOrder := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_out_of_order_total",
		Help: "Readings rejected for violating per-machine timestamp monotonicity.",
	})
	executed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_actions_executed_total",
		Help: "Actions carried out against machines.",
	})
	suppressed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_actions_suppressed_total",
		Help: "Repeat actions suppressed within the cool-down window.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_actions_failed_total",
		Help: "Actions that failed after exhausting the retry budget.",
	})
	redelivers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_outbox_redelivers_total",
		Help: "Outbox publish attempts retried after a delivery failure.",
	})
	busConnected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_bus_connected",
		Help: "1 when the bus connection is up, 0 during an outage.",
	})
	outboxBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_outbox_size_bytes",
		Help: "Size of the publish outbox on disk.",
	})
	machines := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_machines_tracked",
		Help: "Machines with live sliding-window state.",
	})
	agentsKnown := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_agents_known",
		Help: "Agents seen on the discovery heartbeat topic.",
	})
	decisionLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "factory_decision_latency_seconds",
		Help:    "Latency from enriched context receipt to published decision.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	actionLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "factory_action_latency_seconds",
		Help:    "Latency from decision receipt to recorded action outcome.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	prometheus.MustRegister(published, consumed, schemaRejects, outOfOrder,
		executed, suppressed, failed, redelivers,
		busConnected, outboxBytes, machines, agentsKnown, decisionLatency, actionLatency)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			"factory_published_total":          published,
			"factory_consumed_total":           consumed,
			"factory_schema_rejections_total":  schemaRejects,
			"factory_out_of_order_total":       outOfOrder,
			"factory_actions_executed_total":   executed,
			"factory_actions_suppressed_total": suppressed,
			"factory_actions_failed_total":     failed,
			"factory_outbox_redelivers_total":  redelivers,
		},
		gauges: map[string]prometheus.Gauge{
			"factory_bus_connected":     busConnected,
			"factory_outbox_size_bytes": outboxBytes,
			"factory_machines_tracked":  machines,
			"factory_agents_known":      agentsKnown,
		},
		histos: map[string]prometheus.Observer{
			"factory_decision_latency_seconds": decisionLatency,
			"factory_action_latency_seconds":   actionLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.logger.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.Any("error", err))
	}
	p.logger.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
