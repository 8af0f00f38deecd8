package agents

import (
	"context"
	"sync"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// MonitorConfig tunes the floor-health observer.
type MonitorConfig struct {
	AgentID        string
	Namespace      string
	KeepPerMachine int
	StaleAfter     time.Duration
	SweepInterval  time.Duration
}

func (c *MonitorConfig) applyDefaults() {
	if c.AgentID == "" {
		c.AgentID = "performance-monitor"
	}
	if c.KeepPerMachine <= 0 {
		c.KeepPerMachine = 20
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
}

// MachineHealth is the monitor's view of one machine.
type MachineHealth struct {
	MachineID   string
	LastSeen    time.Time
	Anomalous   bool
	LastOutcome domain.Outcome
	LastAction  domain.ActionKind
	Contexts    int
}

// Monitor is a passive observer: it subscribes to context, action, and
// heartbeat topics, keeps a bounded recent history per machine, and evicts
// machines that go quiet. It publishes nothing.
type Monitor struct {
	cfg MonitorConfig
	bus ports.Bus
	obs ports.Observability

	mu       sync.Mutex
	contexts map[string][]*domain.EnrichedContext
	health   map[string]*MachineHealth
	agents   map[string]time.Time
}

func NewMonitor(cfg MonitorConfig, b ports.Bus, obs ports.Observability) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		cfg:      cfg,
		bus:      b,
		obs:      obs,
		contexts: make(map[string][]*domain.EnrichedContext),
		health:   make(map[string]*MachineHealth),
		agents:   make(map[string]time.Time),
	}
}

func (m *Monitor) Run(ctx context.Context) error {
	subs := make([]ports.Subscription, 0, 3)
	for _, s := range []struct {
		pattern string
		handler ports.Handler
	}{
		{bus.Pattern(m.cfg.Namespace, bus.TopicContextPrefix), m.handleContext},
		{bus.Pattern(m.cfg.Namespace, bus.TopicActionPrefix), m.handleAction},
		{bus.HeartbeatTopic(m.cfg.Namespace), m.handleHeartbeat},
	} {
		sub, err := m.bus.Subscribe(ctx, s.pattern, s.handler)
		if err != nil {
			for _, prev := range subs {
				_ = prev.Unsubscribe()
			}
			return err
		}
		subs = append(subs, sub)
	}

	m.obs.LogInfo("monitor_started")

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, sub := range subs {
				_ = sub.Unsubscribe()
			}
			m.obs.LogInfo("monitor_stopped")
			return ctx.Err()
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *Monitor) handleContext(_ context.Context, msg ports.Message) error {
	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindContext)
	if err != nil {
		return nil
	}
	var enriched domain.EnrichedContext
	if err := env.DecodePayload(&enriched); err != nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	window := append(m.contexts[enriched.MachineID], &enriched)
	if len(window) > m.cfg.KeepPerMachine {
		window = window[1:]
	}
	m.contexts[enriched.MachineID] = window

	h := m.healthLocked(enriched.MachineID)
	h.LastSeen = time.Now()
	h.Anomalous = enriched.AnomalySuspected
	h.Contexts = len(window)
	return nil
}

func (m *Monitor) handleAction(_ context.Context, msg ports.Message) error {
	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindAction)
	if err != nil {
		return nil
	}
	var record domain.ActionRecord
	if err := env.DecodePayload(&record); err != nil {
		return nil
	}

	m.obs.LogInfo("action_observed",
		ports.Field{Key: "machine", Value: record.MachineID},
		ports.Field{Key: "action", Value: record.Action.String()},
		ports.Field{Key: "outcome", Value: string(record.Outcome)})

	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.healthLocked(record.MachineID)
	h.LastSeen = time.Now()
	h.LastOutcome = record.Outcome
	h.LastAction = record.Action
	return nil
}

func (m *Monitor) handleHeartbeat(_ context.Context, msg ports.Message) error {
	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindHeartbeat)
	if err != nil {
		return nil
	}
	var hb domain.Heartbeat
	if err := env.DecodePayload(&hb); err != nil {
		return nil
	}

	m.mu.Lock()
	_, known := m.agents[hb.AgentID]
	m.agents[hb.AgentID] = time.Now()
	count := len(m.agents)
	m.mu.Unlock()

	if !known {
		m.obs.LogInfo("agent_discovered", ports.Field{Key: "agent", Value: hb.AgentID})
	}
	m.obs.SetGauge("factory_agents_known", float64(count))
	return nil
}

func (m *Monitor) healthLocked(machineID string) *MachineHealth {
	h, ok := m.health[machineID]
	if !ok {
		h = &MachineHealth{MachineID: machineID}
		m.health[machineID] = h
	}
	return h
}

func (m *Monitor) evictStale() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.cfg.StaleAfter)
	for id, h := range m.health {
		if h.LastSeen.Before(cutoff) {
			delete(m.health, id)
			delete(m.contexts, id)
			m.obs.LogWarn("machine_stale", ports.Field{Key: "machine", Value: id})
		}
	}
}

// Snapshot returns a copy of the current per-machine health table.
func (m *Monitor) Snapshot() []MachineHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MachineHealth, 0, len(m.health))
	for _, h := range m.health {
		out = append(out, *h)
	}
	return out
}
