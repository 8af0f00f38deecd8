package agents

import (
	"context"
	"testing"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

func (o *testObs) gauge(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gauges[name]
}

func monitorContextMessage(t *testing.T, machineID string, anomalous bool) ports.Message {
	t.Helper()
	raw := encodeEnvelope(t, "context", domain.KindContext, &domain.EnrichedContext{
		MachineID:        machineID,
		Timestamp:        time.Now().UTC(),
		Sensors:          map[string]float64{"temperature_c": 50},
		DerivedFeatures:  map[string]float64{"temperature_c_mean": 50},
		AnomalySuspected: anomalous,
		WindowLen:        5,
	})
	return ports.Message{Topic: bus.ContextTopic("", machineID), Key: machineID, Payload: raw}
}

func actionMessage(t *testing.T, machineID string, action domain.ActionKind, outcome domain.Outcome) ports.Message {
	t.Helper()
	raw := encodeEnvelope(t, "executor", domain.KindAction, &domain.ActionRecord{
		MachineID: machineID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Outcome:   outcome,
	})
	return ports.Message{Topic: bus.ActionTopic("", machineID), Key: machineID, Payload: raw}
}

func TestMonitorTracksMachineHealth(t *testing.T) {
	obs := newTestObs()
	mon := NewMonitor(MonitorConfig{}, nil, obs)
	ctx := context.Background()

	if err := mon.handleContext(ctx, monitorContextMessage(t, "CNC001", true)); err != nil {
		t.Fatalf("handle context: %v", err)
	}
	if err := mon.handleAction(ctx, actionMessage(t, "CNC001", domain.ActionThrottle, domain.OutcomeSuccess)); err != nil {
		t.Fatalf("handle action: %v", err)
	}

	snap := mon.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected one machine, got %d", len(snap))
	}
	h := snap[0]
	if h.MachineID != "CNC001" || !h.Anomalous || h.LastAction != domain.ActionThrottle || h.LastOutcome != domain.OutcomeSuccess {
		t.Fatalf("unexpected health: %+v", h)
	}
	if h.Contexts != 1 {
		t.Fatalf("expected 1 context retained, got %d", h.Contexts)
	}
}

func TestMonitorBoundsContextHistory(t *testing.T) {
	obs := newTestObs()
	mon := NewMonitor(MonitorConfig{KeepPerMachine: 3}, nil, obs)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := mon.handleContext(ctx, monitorContextMessage(t, "CNC001", false)); err != nil {
			t.Fatalf("handle context: %v", err)
		}
	}

	snap := mon.Snapshot()
	if len(snap) != 1 || snap[0].Contexts != 3 {
		t.Fatalf("expected history capped at 3, got %+v", snap)
	}
}

func TestMonitorCountsAgents(t *testing.T) {
	obs := newTestObs()
	mon := NewMonitor(MonitorConfig{}, nil, obs)
	ctx := context.Background()

	for _, id := range []string{"generator", "decision", "generator"} {
		raw := encodeEnvelope(t, id, domain.KindHeartbeat, &domain.Heartbeat{
			AgentID:   id,
			Timestamp: time.Now().UTC(),
			Status:    "running",
		})
		msg := ports.Message{Topic: bus.HeartbeatTopic(""), Payload: raw}
		if err := mon.handleHeartbeat(ctx, msg); err != nil {
			t.Fatalf("handle heartbeat: %v", err)
		}
	}

	if got := obs.gauge("factory_agents_known"); got != 2 {
		t.Fatalf("expected 2 known agents, got %v", got)
	}
}

func TestMonitorEvictsStaleMachines(t *testing.T) {
	obs := newTestObs()
	mon := NewMonitor(MonitorConfig{StaleAfter: 10 * time.Millisecond}, nil, obs)
	ctx := context.Background()

	if err := mon.handleContext(ctx, monitorContextMessage(t, "CNC001", false)); err != nil {
		t.Fatalf("handle context: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := mon.handleContext(ctx, monitorContextMessage(t, "ROBOT001", false)); err != nil {
		t.Fatalf("handle context: %v", err)
	}

	mon.evictStale()

	snap := mon.Snapshot()
	if len(snap) != 1 || snap[0].MachineID != "ROBOT001" {
		t.Fatalf("expected only ROBOT001 to survive, got %+v", snap)
	}
}

func TestMonitorIgnoresMalformedMessages(t *testing.T) {
	obs := newTestObs()
	mon := NewMonitor(MonitorConfig{}, nil, obs)
	ctx := context.Background()

	msg := ports.Message{Topic: bus.ContextTopic("", "CNC001"), Payload: []byte("{not json")}
	if err := mon.handleContext(ctx, msg); err != nil {
		t.Fatalf("malformed context should be dropped, got %v", err)
	}
	if len(mon.Snapshot()) != 0 {
		t.Fatalf("malformed context must not create health entries")
	}
}
