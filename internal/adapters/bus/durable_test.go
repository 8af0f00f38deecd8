package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/outbox"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogWarn(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)         {}
func (nopObs) SetGauge(string, float64)               {}

func testPolicy() ports.Policy {
	return ports.Policy{
		PublishBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	}
}

func TestDurablePublisherSurvivesBrokerOutage(t *testing.T) {
	inner := NewMemBus(64)
	ob, err := outbox.NewFileOutbox(t.TempDir())
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}

	var mu sync.Mutex
	var got []string
	if _, err := inner.Subscribe(context.Background(), "telemetry/raw/#", func(_ context.Context, m ports.Message) error {
		mu.Lock()
		got = append(got, string(m.Payload))
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewDurablePublisher(inner, ob, testPolicy(), nopObs{})
	defer pub.Close(context.Background())

	inner.SetOffline(true)
	for _, p := range []string{"a", "b", "c"} {
		if err := pub.Publish(context.Background(), "telemetry/raw/CNC001", []byte(p)); err != nil {
			t.Fatalf("publish during outage should stage, got %v", err)
		}
	}

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	if len(got) != 0 {
		mu.Unlock()
		t.Fatalf("no deliveries expected while broker is offline, got %v", got)
	}
	mu.Unlock()

	inner.SetOffline(false)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, "staged messages after recovery")

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"a", "b", "c"} {
		if got[i] != want {
			t.Fatalf("replay order: expected %v at %d, got %v", want, i, got)
		}
	}

	waitFor(t, func() bool {
		stats := ob.Stats()
		return stats.OldestUncommitted > stats.LatestAppended
	}, "all entries committed")
}

func TestDurablePublisherReplaysAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	// First run: stage messages with the broker down, then stop without
	// delivering.
	ob1, err := outbox.NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	down := NewMemBus(64)
	down.SetOffline(true)
	pub1 := NewDurablePublisher(down, ob1, testPolicy(), nopObs{})
	pub1.Publish(context.Background(), "maintenance/decision/CNC001", []byte("d1"))
	pub1.Publish(context.Background(), "maintenance/decision/CNC001", []byte("d2"))
	if err := pub1.Close(context.Background()); err != nil {
		t.Fatalf("close first run: %v", err)
	}

	// Second run over the same directory delivers the backlog.
	ob2, err := outbox.NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("reopen outbox: %v", err)
	}
	if stats := ob2.Stats(); stats.LatestAppended != 2 || stats.OldestUncommitted != 1 {
		t.Fatalf("unexpected recovered stats: %+v", stats)
	}

	up := NewMemBus(64)
	var mu sync.Mutex
	var got []string
	if _, err := up.Subscribe(context.Background(), "maintenance/decision/#", func(_ context.Context, m ports.Message) error {
		mu.Lock()
		got = append(got, string(m.Payload))
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub2 := NewDurablePublisher(up, ob2, testPolicy(), nopObs{})
	defer pub2.Close(context.Background())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, "backlog replay after restart")

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "d1" || got[1] != "d2" {
		t.Fatalf("replay order: %v", got)
	}
}
