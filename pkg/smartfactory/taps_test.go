package smartfactory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
)

func TestCallbackActuatorInvokesFunction(t *testing.T) {
	var gotMachine string
	var gotAction ActionKind
	act := NewCallbackActuator(func(_ context.Context, machineID string, action ActionKind) error {
		gotMachine = machineID
		gotAction = action
		return nil
	})

	if err := act.Execute(context.Background(), "CNC001", ActionThrottle); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotMachine != "CNC001" || gotAction != ActionThrottle {
		t.Fatalf("callback saw %s/%v", gotMachine, gotAction)
	}
}

func TestCallbackActuatorNilHandler(t *testing.T) {
	act := NewCallbackActuator(nil)
	if err := act.Execute(context.Background(), "CNC001", ActionThrottle); err == nil {
		t.Fatalf("expected nil handler to error")
	}
}

func TestChannelActionTapDeliversRecords(t *testing.T) {
	tap, ch, closeTap := NewChannelActionTap(1)

	rec := &domain.ActionRecord{
		MachineID: "CNC001",
		Timestamp: time.Now(),
		Action:    domain.ActionShutdown,
		Outcome:   domain.OutcomeSuccess,
	}
	if err := tap.RecordActions([]*domain.ActionRecord{rec}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := <-ch
	if got.MachineID != "CNC001" || got.Action != ActionShutdown {
		t.Fatalf("unexpected record %+v", got)
	}

	// Decisions are ignored by the tap.
	if err := tap.RecordDecisions(nil); err != nil {
		t.Fatalf("record decisions: %v", err)
	}

	closeTap()
	if err := tap.RecordActions([]*domain.ActionRecord{rec}); !errors.Is(err, ErrActionTapClosed) {
		t.Fatalf("expected ErrActionTapClosed after close, got %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed")
	}
}
