package agents

import (
	"sync"
	"testing"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// testObs counts metric increments so tests can assert on pipeline behavior
// without a prometheus registry.
type testObs struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func newTestObs() *testObs {
	return &testObs{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

func (o *testObs) LogInfo(string, ...ports.Field)         {}
func (o *testObs) LogWarn(string, ...ports.Field)         {}
func (o *testObs) LogError(string, error, ...ports.Field) {}
func (o *testObs) ObserveLatency(string, float64)         {}

func (o *testObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counters[name] += v
}

func (o *testObs) SetGauge(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gauges[name] = v
}

func (o *testObs) counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

func encodeEnvelope(t *testing.T, sourceAgent, kind string, payload any) []byte {
	t.Helper()
	env, err := domain.NewEnvelope(sourceAgent, kind, payload)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return raw
}

func readingMessage(t *testing.T, topic string, machineID string, ts time.Time, sensors map[string]float64) ports.Message {
	t.Helper()
	raw := encodeEnvelope(t, "test", domain.KindReading, &domain.MachineReading{
		MachineID: machineID,
		Timestamp: ts,
		Sensors:   sensors,
		Status:    domain.StatusRunning,
	})
	return ports.Message{Topic: topic, Key: machineID, Payload: raw}
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}
