package smartfactory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
)

// ErrActionTapClosed is returned when a channel tap receives a record after
// being closed.
var ErrActionTapClosed = errors.New("smartfactory: action tap closed")

// ActuatorFunc is invoked for every action the executor decides to carry out.
type ActuatorFunc func(ctx context.Context, machineID string, action ActionKind) error

// NewCallbackActuator adapts a plain function into an Actuator so callers can
// route actions into their own systems without defining structs.
func NewCallbackActuator(fn ActuatorFunc) Actuator {
	return &callbackActuator{fn: fn}
}

type callbackActuator struct {
	fn ActuatorFunc
}

func (a *callbackActuator) Execute(ctx context.Context, machineID string, action ActionKind) error {
	if a.fn == nil {
		return fmt.Errorf("callback actuator: nil handler")
	}
	return a.fn(ctx, machineID, action)
}

// NewChannelActionTap exposes every recorded action via a channel; it
// returns the sink, the read-only channel, and a close function the caller
// should invoke during shutdown. Wire it with WithHistorySink.
func NewChannelActionTap(buffer int) (HistorySink, <-chan ActionRecord, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan ActionRecord, buffer)
	t := &channelActionTap{
		ch:     ch,
		closed: make(chan struct{}),
	}
	return t, ch, func() { t.close() }
}

type channelActionTap struct {
	ch     chan ActionRecord
	closed chan struct{}
	once   sync.Once
}

func (t *channelActionTap) RecordActions(records []*domain.ActionRecord) error {
	for _, r := range records {
		select {
		case <-t.closed:
			return ErrActionTapClosed
		case t.ch <- *r:
		}
	}
	return nil
}

// RecordDecisions is a no-op: the tap surfaces terminal outcomes only.
func (t *channelActionTap) RecordDecisions([]*domain.Decision) error { return nil }

func (t *channelActionTap) Name() string { return "channel-tap" }

func (t *channelActionTap) close() {
	t.once.Do(func() {
		close(t.closed)
		close(t.ch)
	})
}
