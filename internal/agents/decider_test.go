package agents

import (
	"context"
	"testing"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/scorer"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

func contextMessage(t *testing.T, machineID string, features map[string]float64) ports.Message {
	t.Helper()
	raw := encodeEnvelope(t, "test", domain.KindContext, &domain.EnrichedContext{
		MachineID:       machineID,
		Timestamp:       time.Now().UTC(),
		DerivedFeatures: features,
		OperatingMode:   domain.StatusRunning,
		WindowLen:       1,
	})
	return ports.Message{Topic: "telemetry/context/" + machineID, Key: machineID, Payload: raw}
}

func decodeDecision(t *testing.T, msg ports.Message) (*domain.Envelope, *domain.Decision) {
	t.Helper()
	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindDecision)
	if err != nil {
		t.Fatalf("decode decision envelope: %v", err)
	}
	var d domain.Decision
	if err := env.DecodePayload(&d); err != nil {
		t.Fatalf("decode decision payload: %v", err)
	}
	return env, &d
}

func allFeatures(temp, vib, power float64) map[string]float64 {
	return map[string]float64{
		"temperature_c_mean": temp,
		"vibration_g_max":    vib,
		"power_kw_mean":      power,
	}
}

func TestDecisionActionMapping(t *testing.T) {
	cb := &captureBus{}
	d, err := NewDecisionAgent(DecisionAgentConfig{ShutdownThreshold: 0.95},
		cb, scorer.Default(), newTestObs(), nil)
	if err != nil {
		t.Fatalf("new decision agent: %v", err)
	}

	cases := []struct {
		name      string
		features  map[string]float64
		wantClass domain.RiskClass
		wantAct   domain.ActionKind
	}{
		// Default artifact: temperature normal max 60, fault point 90.
		{"normal", allFeatures(50, 0.5, 10), domain.RiskNormal, domain.ActionNone},
		{"warning", allFeatures(78, 0.5, 10), domain.RiskWarning, domain.ActionScheduleMaintenance},
		{"critical throttles", allFeatures(85, 0.5, 10), domain.RiskCritical, domain.ActionThrottle},
		{"critical shutdown", allFeatures(95, 0.5, 10), domain.RiskCritical, domain.ActionShutdown},
	}
	for _, tc := range cases {
		if err := d.handle(context.Background(), contextMessage(t, "CNC001", tc.features)); err != nil {
			t.Fatalf("%s: handle: %v", tc.name, err)
		}
		_, decision := decodeDecision(t, cb.last(t))
		if decision.Classification != tc.wantClass {
			t.Fatalf("%s: expected class %s, got %s", tc.name, tc.wantClass, decision.Classification)
		}
		if decision.Action != tc.wantAct {
			t.Fatalf("%s: expected action %s, got %s", tc.name, tc.wantAct, decision.Action)
		}
		if decision.ScorerVersion != "sim-1" {
			t.Fatalf("%s: expected scorer version stamped, got %q", tc.name, decision.ScorerVersion)
		}
	}
}

func TestCriticalDecisionIsHighPriority(t *testing.T) {
	cb := &captureBus{}
	d, _ := NewDecisionAgent(DecisionAgentConfig{}, cb, scorer.Default(), newTestObs(), nil)

	if err := d.handle(context.Background(), contextMessage(t, "CNC001", allFeatures(95, 0.5, 10))); err != nil {
		t.Fatalf("handle: %v", err)
	}
	env, _ := decodeDecision(t, cb.last(t))
	if env.Priority != domain.PriorityHigh {
		t.Fatalf("expected high priority, got %s", env.Priority)
	}
}

func TestMissingFeatureSkipsDecision(t *testing.T) {
	cb := &captureBus{}
	obs := newTestObs()
	d, _ := NewDecisionAgent(DecisionAgentConfig{}, cb, scorer.Default(), obs, nil)

	msg := contextMessage(t, "CNC001", map[string]float64{"temperature_c_mean": 50})
	if err := d.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if cb.count() != 0 {
		t.Fatalf("incomplete feature vector must not produce a decision")
	}
	if obs.counter("factory_schema_rejections_total") != 1 {
		t.Fatalf("expected schema rejection counted")
	}
}

func TestDecisionAgentRequiresScorer(t *testing.T) {
	if _, err := NewDecisionAgent(DecisionAgentConfig{}, &captureBus{}, nil, newTestObs(), nil); err == nil {
		t.Fatalf("expected constructor to reject nil scorer")
	}
}

func TestDecisionRecordedToHistorySink(t *testing.T) {
	cb := &captureBus{}
	sink := &captureSink{}
	d, _ := NewDecisionAgent(DecisionAgentConfig{}, cb, scorer.Default(), newTestObs(), sink)

	if err := d.handle(context.Background(), contextMessage(t, "CNC001", allFeatures(78, 0.5, 10))); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.decisions) != 1 || sink.decisions[0].MachineID != "CNC001" {
		t.Fatalf("expected decision persisted, got %+v", sink.decisions)
	}
}

type captureSink struct {
	decisions []*domain.Decision
	actions   []*domain.ActionRecord
}

func (s *captureSink) RecordDecisions(ds []*domain.Decision) error {
	s.decisions = append(s.decisions, ds...)
	return nil
}

func (s *captureSink) RecordActions(rs []*domain.ActionRecord) error {
	s.actions = append(s.actions, rs...)
	return nil
}

func (s *captureSink) Name() string { return "capture" }
