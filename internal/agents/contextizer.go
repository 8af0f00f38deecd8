package agents

import (
	"context"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// Anomaly heuristics applied before scoring; these only set the advisory
// flag, classification is the decision agent's job.
const (
	anomalyTempMean = 70.0
	anomalyVibMax   = 3.0
)

// ContextProcessorConfig tunes the sliding-window enrichment stage.
type ContextProcessorConfig struct {
	AgentID    string
	Namespace  string
	WindowSize int
}

func (c *ContextProcessorConfig) applyDefaults() {
	if c.AgentID == "" {
		c.AgentID = "context-processing"
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
}

// ContextProcessor keeps a bounded per-machine window of recent readings and
// publishes an EnrichedContext with derived features on every accepted
// reading. Readings whose timestamp does not advance the window are rejected
// without touching state.
type ContextProcessor struct {
	cfg ContextProcessorConfig
	bus ports.Bus
	obs ports.Observability

	windows map[string][]*domain.MachineReading
	sub     ports.Subscription
}

func NewContextProcessor(cfg ContextProcessorConfig, b ports.Bus, obs ports.Observability) *ContextProcessor {
	cfg.applyDefaults()
	return &ContextProcessor{
		cfg:     cfg,
		bus:     b,
		obs:     obs,
		windows: make(map[string][]*domain.MachineReading),
	}
}

func (p *ContextProcessor) Run(ctx context.Context) error {
	pattern := bus.Pattern(p.cfg.Namespace, bus.TopicRawPrefix)
	sub, err := p.bus.Subscribe(ctx, pattern, p.handle)
	if err != nil {
		return err
	}
	p.sub = sub

	p.obs.LogInfo("context_processor_started",
		ports.Field{Key: "window_size", Value: p.cfg.WindowSize})

	<-ctx.Done()
	_ = sub.Unsubscribe()
	p.obs.LogInfo("context_processor_stopped")
	return ctx.Err()
}

// handle runs on the subscription's single delivery goroutine, so window
// state needs no locking.
func (p *ContextProcessor) handle(ctx context.Context, msg ports.Message) error {
	p.obs.IncCounter("factory_consumed_total", 1)

	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindReading)
	if err != nil {
		p.rejectSchema(msg.Topic, err)
		return nil
	}
	var reading domain.MachineReading
	if err := env.DecodePayload(&reading); err != nil {
		p.rejectSchema(msg.Topic, err)
		return nil
	}
	if reading.MachineID == "" || reading.Timestamp.IsZero() {
		p.rejectSchema(msg.Topic, &domain.SchemaMismatchError{
			Kind: domain.KindReading, Reason: "missing machineId or timestamp"})
		return nil
	}

	window := p.windows[reading.MachineID]
	if n := len(window); n > 0 && !reading.Timestamp.After(window[n-1].Timestamp) {
		p.obs.IncCounter("factory_out_of_order_total", 1)
		p.obs.LogWarn("out_of_order_reading",
			ports.Field{Key: "machine", Value: reading.MachineID},
			ports.Field{Key: "timestamp", Value: reading.Timestamp})
		return nil
	}

	window = append(window, reading.Clone())
	if len(window) > p.cfg.WindowSize {
		window = window[1:]
	}
	p.windows[reading.MachineID] = window
	p.obs.SetGauge("factory_machines_tracked", float64(len(p.windows)))

	enriched := deriveContext(&reading, window)

	priority := domain.PriorityNormal
	if enriched.AnomalySuspected {
		priority = domain.PriorityHigh
	}
	topic := bus.ContextTopic(p.cfg.Namespace, reading.MachineID)
	_ = publishEnvelope(ctx, p.bus, p.obs, p.cfg.AgentID,
		domain.KindContext, topic, priority, enriched)
	return nil
}

func (p *ContextProcessor) rejectSchema(topic string, err error) {
	p.obs.IncCounter("factory_schema_rejections_total", 1)
	p.obs.LogWarn("schema_rejected",
		ports.Field{Key: "topic", Value: topic},
		ports.Field{Key: "error", Value: err})
}

// deriveContext computes per-sensor window statistics: mean, population
// variance, max, and per-second rate of change between the window's first
// and last reading.
func deriveContext(latest *domain.MachineReading, window []*domain.MachineReading) *domain.EnrichedContext {
	features := make(map[string]float64, len(latest.Sensors)*4)

	for sensor := range latest.Sensors {
		var sum, sumSq, max float64
		count := 0
		for _, r := range window {
			v, ok := r.Sensors[sensor]
			if !ok {
				continue
			}
			sum += v
			sumSq += v * v
			if count == 0 || v > max {
				max = v
			}
			count++
		}
		if count == 0 {
			continue
		}

		mean := sum / float64(count)
		variance := sumSq/float64(count) - mean*mean
		if variance < 0 { // float rounding on near-constant windows
			variance = 0
		}
		features[sensor+"_mean"] = mean
		features[sensor+"_var"] = variance
		features[sensor+"_max"] = max

		rate := 0.0
		if first, last := window[0], window[len(window)-1]; len(window) > 1 {
			if fv, ok := first.Sensors[sensor]; ok {
				if lv, ok := last.Sensors[sensor]; ok {
					if dt := last.Timestamp.Sub(first.Timestamp).Seconds(); dt > 0 {
						rate = (lv - fv) / dt
					}
				}
			}
		}
		features[sensor+"_rate"] = rate
	}

	anomaly := features["temperature_c_mean"] > anomalyTempMean ||
		features["vibration_g_max"] > anomalyVibMax

	return &domain.EnrichedContext{
		MachineID:        latest.MachineID,
		Timestamp:        latest.Timestamp,
		Sensors:          latest.Sensors,
		DerivedFeatures:  features,
		OperatingMode:    latest.Status,
		AnomalySuspected: anomaly,
		WindowLen:        len(window),
	}
}
