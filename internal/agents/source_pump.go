package agents

import (
	"context"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// SourcePump bridges an external TelemetrySource (OPC UA hardware) onto the
// raw-telemetry topics, standing in for the synthetic generator.
type SourcePump struct {
	agentID   string
	namespace string
	source    ports.TelemetrySource
	bus       ports.Bus
	obs       ports.Observability
	queueLen  int
}

func NewSourcePump(agentID, namespace string, src ports.TelemetrySource,
	b ports.Bus, obs ports.Observability, queueLen int) *SourcePump {

	if agentID == "" {
		agentID = "telemetry-source"
	}
	if queueLen <= 0 {
		queueLen = 256
	}
	return &SourcePump{
		agentID:   agentID,
		namespace: namespace,
		source:    src,
		bus:       b,
		obs:       obs,
		queueLen:  queueLen,
	}
}

func (p *SourcePump) Run(ctx context.Context) error {
	ch := make(chan *domain.MachineReading, p.queueLen)
	if err := p.source.Start(ch); err != nil {
		return err
	}
	p.obs.LogInfo("source_pump_started")

	for {
		select {
		case <-ctx.Done():
			err := p.source.Stop()
			p.obs.LogInfo("source_pump_stopped")
			if err != nil {
				return err
			}
			return ctx.Err()
		case reading := <-ch:
			if reading == nil {
				continue
			}
			topic := bus.RawTopic(p.namespace, reading.MachineID)
			_ = publishEnvelope(ctx, p.bus, p.obs, p.agentID,
				domain.KindReading, topic, domain.PriorityNormal, reading)
		}
	}
}
