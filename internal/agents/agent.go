// Package agents holds the four pipeline agents plus the monitor. Agents
// share nothing but the bus: each owns its per-machine state and exchanges
// enveloped JSON messages over topics, so any agent can be restarted or
// swapped for a remote peer without touching the others.
package agents

import (
	"context"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// publishEnvelope wraps payload and publishes it. Delivery failures are the
// bus adapter's to retry; here they are logged and counted, never fatal.
func publishEnvelope(ctx context.Context, bus ports.Bus, obs ports.Observability,
	sourceAgent, kind, topic, priority string, payload any) error {

	env, err := domain.NewEnvelope(sourceAgent, kind, payload)
	if err != nil {
		return err
	}
	env.Priority = priority

	raw, err := env.Encode()
	if err != nil {
		return err
	}
	if err := bus.Publish(ctx, topic, raw); err != nil {
		obs.LogWarn("publish_failed",
			ports.Field{Key: "topic", Value: topic},
			ports.Field{Key: "kind", Value: kind},
			ports.Field{Key: "error", Value: err})
		return err
	}
	obs.IncCounter("factory_published_total", 1)
	return nil
}
