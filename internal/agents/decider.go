package agents

import (
	"context"
	"errors"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// DecisionAgentConfig tunes the scoring stage.
type DecisionAgentConfig struct {
	AgentID           string
	Namespace         string
	ShutdownThreshold float64
	HeartbeatInterval time.Duration
}

func (c *DecisionAgentConfig) applyDefaults() {
	if c.AgentID == "" {
		c.AgentID = "decision"
	}
	if c.ShutdownThreshold <= 0 || c.ShutdownThreshold > 1 {
		c.ShutdownThreshold = 0.95
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
}

type lastClassification struct {
	class domain.RiskClass
	at    time.Time
}

// DecisionAgent scores every enriched context with the loaded artifact and
// publishes a Decision per context. It never suppresses: repeated-action
// dedup is the executor's responsibility.
type DecisionAgent struct {
	cfg    DecisionAgentConfig
	bus    ports.Bus
	scorer ports.Scorer
	obs    ports.Observability
	sink   ports.HistorySink // optional

	last map[string]lastClassification
}

func NewDecisionAgent(cfg DecisionAgentConfig, b ports.Bus, scorer ports.Scorer,
	obs ports.Observability, sink ports.HistorySink) (*DecisionAgent, error) {

	cfg.applyDefaults()
	if scorer == nil {
		return nil, errors.New("decision agent: scorer is required")
	}
	return &DecisionAgent{
		cfg:    cfg,
		bus:    b,
		scorer: scorer,
		obs:    obs,
		sink:   sink,
		last:   make(map[string]lastClassification),
	}, nil
}

func (d *DecisionAgent) Run(ctx context.Context) error {
	pattern := bus.Pattern(d.cfg.Namespace, bus.TopicContextPrefix)
	sub, err := d.bus.Subscribe(ctx, pattern, d.handle)
	if err != nil {
		return err
	}

	d.obs.LogInfo("decision_agent_started",
		ports.Field{Key: "scorer_version", Value: d.scorer.Version()},
		ports.Field{Key: "features", Value: d.scorer.Features()})

	d.publishHeartbeat(ctx)
	ticker := time.NewTicker(d.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			d.obs.LogInfo("decision_agent_stopped")
			return ctx.Err()
		case <-ticker.C:
			d.publishHeartbeat(ctx)
		}
	}
}

func (d *DecisionAgent) handle(ctx context.Context, msg ports.Message) error {
	started := time.Now()
	d.obs.IncCounter("factory_consumed_total", 1)

	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindContext)
	if err != nil {
		d.rejectSchema(msg.Topic, err)
		return nil
	}
	var enriched domain.EnrichedContext
	if err := env.DecodePayload(&enriched); err != nil {
		d.rejectSchema(msg.Topic, err)
		return nil
	}

	class, score, err := d.scorer.Score(ports.FeatureVector(enriched.DerivedFeatures))
	if err != nil {
		d.rejectSchema(msg.Topic, err)
		return nil
	}

	decision := &domain.Decision{
		MachineID:      enriched.MachineID,
		Timestamp:      enriched.Timestamp,
		Classification: class,
		Confidence:     score,
		Action:         d.recommend(class, score),
		ScorerVersion:  d.scorer.Version(),
	}

	if prev, ok := d.last[enriched.MachineID]; ok && prev.class != class {
		d.obs.LogInfo("classification_changed",
			ports.Field{Key: "machine", Value: enriched.MachineID},
			ports.Field{Key: "from", Value: prev.class.String()},
			ports.Field{Key: "to", Value: class.String()})
	}
	d.last[enriched.MachineID] = lastClassification{class: class, at: time.Now()}

	priority := domain.PriorityNormal
	if class == domain.RiskCritical {
		priority = domain.PriorityHigh
	}
	topic := bus.DecisionTopic(d.cfg.Namespace, enriched.MachineID)
	_ = publishEnvelope(ctx, d.bus, d.obs, d.cfg.AgentID,
		domain.KindDecision, topic, priority, decision)

	if d.sink != nil {
		if err := d.sink.RecordDecisions([]*domain.Decision{decision}); err != nil {
			d.obs.LogWarn("history_sink_decision_failed",
				ports.Field{Key: "sink", Value: d.sink.Name()},
				ports.Field{Key: "error", Value: err})
		}
	}

	d.obs.ObserveLatency("factory_decision_latency_seconds", time.Since(started).Seconds())
	return nil
}

// recommend maps a classification to the action the executor should take.
// Only a CRITICAL score at or above the shutdown threshold warrants a full
// stop; lesser CRITICAL scores throttle the machine instead.
func (d *DecisionAgent) recommend(class domain.RiskClass, score float64) domain.ActionKind {
	switch class {
	case domain.RiskWarning:
		return domain.ActionScheduleMaintenance
	case domain.RiskCritical:
		if score >= d.cfg.ShutdownThreshold {
			return domain.ActionShutdown
		}
		return domain.ActionThrottle
	default:
		return domain.ActionNone
	}
}

func (d *DecisionAgent) rejectSchema(topic string, err error) {
	d.obs.IncCounter("factory_schema_rejections_total", 1)
	d.obs.LogWarn("schema_rejected",
		ports.Field{Key: "topic", Value: topic},
		ports.Field{Key: "error", Value: err})
}

// publishHeartbeat announces this agent's capabilities on the retained
// discovery topic so late joiners learn the active topology.
func (d *DecisionAgent) publishHeartbeat(ctx context.Context) {
	hb := &domain.Heartbeat{
		AgentID:   d.cfg.AgentID,
		Timestamp: time.Now().UTC(),
		Consumes:  []domain.Capability{{Kind: domain.KindContext, SchemaVersion: domain.SchemaVersion}},
		Produces:  []domain.Capability{{Kind: domain.KindDecision, SchemaVersion: domain.SchemaVersion}},
		Status:    "active",
	}
	env, err := domain.NewEnvelope(d.cfg.AgentID, domain.KindHeartbeat, hb)
	if err != nil {
		return
	}
	raw, err := env.Encode()
	if err != nil {
		return
	}
	topic := bus.HeartbeatTopic(d.cfg.Namespace)
	if err := d.bus.PublishRetained(ctx, topic, raw); err != nil {
		d.obs.LogWarn("heartbeat_publish_failed", ports.Field{Key: "error", Value: err})
	}
}
