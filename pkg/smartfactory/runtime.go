package smartfactory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/actuator"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/observability"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/opcua"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/outbox"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/scorer"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/sink"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/agents"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// Agent names accepted by WithAgents and the -agents CLI flag.
const (
	AgentGenerator = "generator"
	AgentContext   = "context"
	AgentDecision  = "decision"
	AgentExecutor  = "executor"
	AgentMonitor   = "monitor"
)

// AllAgents lists every agent in pipeline order.
var AllAgents = []string{AgentGenerator, AgentContext, AgentDecision, AgentExecutor, AgentMonitor}

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	bus           Bus
	scorer        Scorer
	actuator      Actuator
	sink          HistorySink
	source        TelemetrySource
	observability Observability
	agents        []string
}

// WithBus injects a custom bus implementation instead of the configured one.
func WithBus(b Bus) RuntimeOption {
	return func(o *runtimeOverrides) { o.bus = b }
}

// WithScorer injects a custom scoring artifact.
func WithScorer(s Scorer) RuntimeOption {
	return func(o *runtimeOverrides) { o.scorer = s }
}

// WithActuator injects a custom actuator so actions reach real equipment or
// caller code instead of the simulator.
func WithActuator(a Actuator) RuntimeOption {
	return func(o *runtimeOverrides) { o.actuator = a }
}

// WithHistorySink injects a custom persistence backend for decisions and
// action records.
func WithHistorySink(s HistorySink) RuntimeOption {
	return func(o *runtimeOverrides) { o.sink = s }
}

// WithSource replaces the synthetic generator with an external telemetry
// source; it implies the generator agent is not started.
func WithSource(src TelemetrySource) RuntimeOption {
	return func(o *runtimeOverrides) { o.source = src }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithAgents restricts which agents this process runs, so the pipeline can
// be spread across processes sharing a broker.
func WithAgents(names ...string) RuntimeOption {
	return func(o *runtimeOverrides) { o.agents = names }
}

type runner func(ctx context.Context) error

// Runtime wires the bus, the enabled agents, and the metrics endpoint, and
// owns their lifecycle.
type Runtime struct {
	cfg *Config
	obs ports.Observability
	bus ports.Bus

	runners []runner
	db      *sql.DB

	outboxStats func() ports.OutboxStats

	metricsSrv  *http.Server
	gaugeStopCh chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRuntime bootstraps the configured adapters (bus per config, default
// scorer artifact, simulated actuator, optional Timescale sink and OPC UA
// source, Prometheus observability). RuntimeOption values override any
// dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(slog.Default())
	}

	rt := &Runtime{cfg: cfg, obs: obs}

	b := overrides.bus
	if b == nil {
		var err error
		b, err = buildBus(cfg, obs)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Outbox.Dir != "" {
		ob, err := outbox.NewFileOutbox(cfg.Outbox.Dir)
		if err != nil {
			return nil, err
		}
		rt.outboxStats = ob.Stats
		b = bus.NewDurablePublisher(b, ob, cfg.Policy, obs)
	}
	rt.bus = b

	sc := overrides.scorer
	if sc == nil {
		var err error
		sc, err = buildScorer(cfg)
		if err != nil {
			return nil, err
		}
	}

	act := overrides.actuator
	if act == nil {
		act = actuator.NewSimActuator(0.05, 10*time.Millisecond, 0)
	}

	historySink := overrides.sink
	if historySink == nil && cfg.Timescale.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		rt.db = db
		historySink = sink.NewTimescaleSink(db, cfg.Timescale.DecisionTable, cfg.Timescale.ActionTable)
	}

	source := overrides.source
	if source == nil && cfg.OPCUA.Endpoint != "" {
		var err error
		source, err = opcua.NewSource(cfg.OPCUA, slog.Default())
		if err != nil {
			return nil, err
		}
	}

	enabled := overrides.agents
	if len(enabled) == 0 {
		enabled = AllAgents
	}
	if err := rt.buildAgents(enabled, sc, act, historySink, source); err != nil {
		return nil, err
	}

	return rt, nil
}

func buildBus(cfg *Config, obs ports.Observability) (ports.Bus, error) {
	switch cfg.Bus.Kind {
	case BusMem:
		return bus.NewMemBus(cfg.Policy.QueueLen), nil
	case BusMQTT:
		return bus.NewMQTTBus(cfg.Bus.MQTT, obs)
	case BusKafka:
		return bus.NewKafkaBus(cfg.Bus.Kafka, obs)
	default:
		return nil, fmt.Errorf("unknown bus kind %q", cfg.Bus.Kind)
	}
}

func buildScorer(cfg *Config) (ports.Scorer, error) {
	if cfg.Scorer.ArtifactPath != "" {
		return scorer.Load(cfg.Scorer.ArtifactPath)
	}
	return scorer.Default(), nil
}

func (r *Runtime) buildAgents(enabled []string, sc ports.Scorer, act ports.Actuator,
	historySink ports.HistorySink, source ports.TelemetrySource) error {

	for _, name := range enabled {
		switch name {
		case AgentGenerator:
			if source != nil {
				pump := agents.NewSourcePump("telemetry-source", r.cfg.Namespace,
					source, r.bus, r.obs, r.cfg.Policy.QueueLen)
				r.runners = append(r.runners, pump.Run)
				continue
			}
			gen, err := agents.NewGenerator(agents.GeneratorConfig{
				Namespace:        r.cfg.Namespace,
				Machines:         r.cfg.Generator.Machines,
				Interval:         r.cfg.Generator.Interval,
				FaultProbability: r.cfg.Generator.FaultProbability,
				FaultDuration:    r.cfg.Generator.FaultDuration,
				Seed:             r.cfg.Generator.Seed,
			}, r.bus, r.obs)
			if err != nil {
				return err
			}
			r.runners = append(r.runners, gen.Run)
		case AgentContext:
			proc := agents.NewContextProcessor(agents.ContextProcessorConfig{
				Namespace:  r.cfg.Namespace,
				WindowSize: r.cfg.Policy.WindowSize,
			}, r.bus, r.obs)
			r.runners = append(r.runners, proc.Run)
		case AgentDecision:
			dec, err := agents.NewDecisionAgent(agents.DecisionAgentConfig{
				Namespace:         r.cfg.Namespace,
				ShutdownThreshold: r.cfg.Policy.ShutdownThreshold,
			}, r.bus, sc, r.obs, historySink)
			if err != nil {
				return err
			}
			r.runners = append(r.runners, dec.Run)
		case AgentExecutor:
			exec := agents.NewActionExecutor(agents.ActionExecutorConfig{
				Namespace:     r.cfg.Namespace,
				CoolDown:      r.cfg.Policy.CoolDown,
				ActionRetries: r.cfg.Policy.ActionRetries,
				ActionBackoff: r.cfg.Policy.ActionBackoff,
			}, r.bus, act, r.obs, historySink)
			r.runners = append(r.runners, exec.Run)
		case AgentMonitor:
			mon := agents.NewMonitor(agents.MonitorConfig{
				Namespace: r.cfg.Namespace,
			}, r.bus, r.obs)
			r.runners = append(r.runners, mon.Run)
		default:
			return fmt.Errorf("unknown agent %q", name)
		}
	}
	return nil
}

// Bus exposes the runtime's bus so embedders can subscribe alongside the
// agents (taps, dashboards).
func (r *Runtime) Bus() Bus { return r.bus }

// Start launches the enabled agents and the observability stack. It returns
// immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, run := range r.runners {
		run := run
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.obs.LogError("agent_exited", err)
			}
		}()
	}

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled,
// then attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the agents, the metrics server, the bus, and the DB
// connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.cancel != nil {
		r.cancel()
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.bus != nil {
		if err := r.bus.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.outboxStats != nil {
				stats := r.outboxStats()
				r.obs.SetGauge("factory_outbox_size_bytes", float64(stats.SizeBytes))
			}
		}
	}
}
