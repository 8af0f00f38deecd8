package actuator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

var errTransient = errors.New("simulated transient fault")

// SimActuator pretends to carry commands to floor equipment. A configurable
// failure probability exercises the executor's retry path; Latency models
// the round trip to the machine.
type SimActuator struct {
	failureProbability float64
	latency            time.Duration

	mu   sync.Mutex
	rng  *rand.Rand
	done map[string]domain.ActionKind
}

func NewSimActuator(failureProbability float64, latency time.Duration, seed int64) *SimActuator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimActuator{
		failureProbability: failureProbability,
		latency:            latency,
		rng:                rand.New(rand.NewSource(seed)),
		done:               make(map[string]domain.ActionKind),
	}
}

func (a *SimActuator) Execute(ctx context.Context, machineID string, action domain.ActionKind) error {
	if a.latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.latency):
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng.Float64() < a.failureProbability {
		return &domain.ActuatorError{MachineID: machineID, Action: action, Err: errTransient}
	}
	a.done[machineID] = action
	return nil
}

// LastAction reports the most recent successful command for a machine.
func (a *SimActuator) LastAction(machineID string) (domain.ActionKind, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k, ok := a.done[machineID]
	return k, ok
}

var _ ports.Actuator = (*SimActuator)(nil)
