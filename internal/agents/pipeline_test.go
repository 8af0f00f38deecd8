package agents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/actuator"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/scorer"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// Full pipeline over the in-memory broker: a sustained high-temperature
// reading must come out the far end as an executed SHUTDOWN.
func TestPipelineCriticalReadingEndsInShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewMemBus(256)
	defer b.Close(context.Background())
	obs := newTestObs()
	act := actuator.NewSimActuator(0, 0, 1)

	processor := NewContextProcessor(ContextProcessorConfig{WindowSize: 5}, b, obs)
	decider, err := NewDecisionAgent(DecisionAgentConfig{ShutdownThreshold: 0.95}, b, scorer.Default(), obs, nil)
	if err != nil {
		t.Fatalf("new decision agent: %v", err)
	}
	executor := NewActionExecutor(ActionExecutorConfig{CoolDown: time.Minute}, b, act, obs, nil)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context) error{processor.Run, decider.Run, executor.Run} {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			_ = run(ctx)
		}(run)
	}
	// Give the agents time to subscribe before injecting telemetry.
	time.Sleep(50 * time.Millisecond)

	var mu sync.Mutex
	var records []*domain.ActionRecord
	if _, err := b.Subscribe(ctx, "maintenance/action/#", func(_ context.Context, m ports.Message) error {
		env, err := domain.DecodeEnvelope(m.Payload, domain.KindAction)
		if err != nil {
			return nil
		}
		var r domain.ActionRecord
		if err := env.DecodePayload(&r); err != nil {
			return nil
		}
		mu.Lock()
		records = append(records, &r)
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe actions: %v", err)
	}

	msg := readingMessage(t, "telemetry/raw/CNC001", "CNC001", time.Now().UTC(),
		map[string]float64{"temperature_c": 95, "vibration_g": 0.5, "power_kw": 10})
	if err := b.Publish(ctx, msg.Topic, msg.Payload); err != nil {
		t.Fatalf("publish reading: %v", err)
	}

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(records) == 1
	}, "action record")

	mu.Lock()
	r := records[0]
	mu.Unlock()
	if r.MachineID != "CNC001" {
		t.Fatalf("unexpected machine %s", r.MachineID)
	}
	if r.Action != domain.ActionShutdown {
		t.Fatalf("expected SHUTDOWN for mean temperature 95, got %s", r.Action)
	}
	if r.Outcome != domain.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", r.Outcome, r.Detail)
	}
	if got, ok := act.LastAction("CNC001"); !ok || got != domain.ActionShutdown {
		t.Fatalf("actuator should have received the shutdown, got %v %v", got, ok)
	}

	cancel()
	wg.Wait()
}

// A second critical reading inside the cool-down produces a SUPPRESSED
// record and no second actuator call.
func TestPipelineRepeatCriticalIsSuppressed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewMemBus(256)
	defer b.Close(context.Background())
	obs := newTestObs()
	act := actuator.NewSimActuator(0, 0, 1)

	processor := NewContextProcessor(ContextProcessorConfig{WindowSize: 1}, b, obs)
	decider, _ := NewDecisionAgent(DecisionAgentConfig{}, b, scorer.Default(), obs, nil)
	executor := NewActionExecutor(ActionExecutorConfig{CoolDown: time.Hour}, b, act, obs, nil)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context) error{processor.Run, decider.Run, executor.Run} {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			_ = run(ctx)
		}(run)
	}
	time.Sleep(50 * time.Millisecond)

	var mu sync.Mutex
	var outcomes []domain.Outcome
	if _, err := b.Subscribe(ctx, "maintenance/action/#", func(_ context.Context, m ports.Message) error {
		env, err := domain.DecodeEnvelope(m.Payload, domain.KindAction)
		if err != nil {
			return nil
		}
		var r domain.ActionRecord
		if err := env.DecodePayload(&r); err != nil {
			return nil
		}
		mu.Lock()
		outcomes = append(outcomes, r.Outcome)
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe actions: %v", err)
	}

	base := time.Now().UTC()
	hot := map[string]float64{"temperature_c": 95, "vibration_g": 0.5, "power_kw": 10}
	for i := 0; i < 2; i++ {
		msg := readingMessage(t, "telemetry/raw/CNC001", "CNC001",
			base.Add(time.Duration(i)*time.Second), hot)
		if err := b.Publish(ctx, msg.Topic, msg.Payload); err != nil {
			t.Fatalf("publish reading %d: %v", i, err)
		}
	}

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(outcomes) == 2
	}, "two action records")

	mu.Lock()
	defer mu.Unlock()
	if outcomes[0] != domain.OutcomeSuccess || outcomes[1] != domain.OutcomeSuppressed {
		t.Fatalf("expected SUCCESS then SUPPRESSED, got %v", outcomes)
	}

	cancel()
	wg.Wait()
}
