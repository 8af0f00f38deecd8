package agents

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// sensorBand bounds a sensor's random walk in normal and fault operation.
type sensorBand struct {
	name                 string
	normalLo, normalHi   float64
	faultLo, faultHi     float64
}

// Stock sensor model for the simulated floor.
var defaultBands = []sensorBand{
	{name: "temperature_c", normalLo: 20, normalHi: 60, faultLo: 60, faultHi: 90},
	{name: "vibration_g", normalLo: 0.1, normalHi: 2.0, faultLo: 2.0, faultHi: 4.0},
	{name: "power_kw", normalLo: 5, normalHi: 30, faultLo: 30, faultHi: 45},
}

// GeneratorConfig tunes the synthetic telemetry source.
type GeneratorConfig struct {
	AgentID          string
	Namespace        string
	Machines         []string
	Interval         time.Duration
	FaultProbability float64
	FaultDuration    int // ticks a fault persists once injected
	Seed             int64
}

func (c *GeneratorConfig) applyDefaults() {
	if c.AgentID == "" {
		c.AgentID = "data-generation"
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.FaultProbability < 0 {
		c.FaultProbability = 0
	}
	if c.FaultDuration <= 0 {
		c.FaultDuration = 10
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

type machineState struct {
	values      map[string]float64
	faultTicks  int
	lastEmitted time.Time
}

// Generator emits one MachineReading per machine per tick: a bounded random
// walk that occasionally drifts into a fault band for a few cycles.
type Generator struct {
	cfg GeneratorConfig
	bus ports.Bus
	obs ports.Observability
	rng *rand.Rand

	machines map[string]*machineState
}

func NewGenerator(cfg GeneratorConfig, b ports.Bus, obs ports.Observability) (*Generator, error) {
	cfg.applyDefaults()
	if len(cfg.Machines) == 0 {
		return nil, errors.New("generator: at least one machine is required")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	machines := make(map[string]*machineState, len(cfg.Machines))
	for _, id := range cfg.Machines {
		values := make(map[string]float64, len(defaultBands))
		for _, band := range defaultBands {
			values[band.name] = band.normalLo + rng.Float64()*(band.normalHi-band.normalLo)
		}
		machines[id] = &machineState{values: values}
	}

	return &Generator{cfg: cfg, bus: b, obs: obs, rng: rng, machines: machines}, nil
}

func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	g.obs.LogInfo("generator_started",
		ports.Field{Key: "machines", Value: len(g.machines)},
		ports.Field{Key: "interval", Value: g.cfg.Interval.String()})

	for {
		select {
		case <-ctx.Done():
			g.obs.LogInfo("generator_stopped")
			return ctx.Err()
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

func (g *Generator) tick(ctx context.Context) {
	for _, id := range g.cfg.Machines {
		st := g.machines[id]
		g.step(st)

		ts := time.Now().UTC()
		if !ts.After(st.lastEmitted) {
			ts = st.lastEmitted.Add(time.Millisecond)
		}
		st.lastEmitted = ts

		reading := &domain.MachineReading{
			MachineID: id,
			Timestamp: ts,
			Sensors:   copySensors(st.values),
			Status:    domain.StatusRunning,
		}

		topic := bus.RawTopic(g.cfg.Namespace, id)
		// A failed publish is not retried here: the next tick carries a
		// fresher reading anyway.
		_ = publishEnvelope(ctx, g.bus, g.obs, g.cfg.AgentID,
			domain.KindReading, topic, domain.PriorityNormal, reading)
	}
}

// step advances one machine's random walk. A fault pins each sensor's target
// band to the fault range for FaultDuration ticks; values move a third of the
// way toward the active band per tick so transitions ramp rather than jump.
func (g *Generator) step(st *machineState) {
	if st.faultTicks == 0 && g.rng.Float64() < g.cfg.FaultProbability {
		st.faultTicks = g.cfg.FaultDuration
	}
	inFault := st.faultTicks > 0
	if inFault {
		st.faultTicks--
	}

	for _, band := range defaultBands {
		lo, hi := band.normalLo, band.normalHi
		if inFault {
			lo, hi = band.faultLo, band.faultHi
		}
		width := hi - lo
		v := st.values[band.name]

		v += (g.rng.Float64()*2 - 1) * width * 0.05
		if v < lo {
			v += (lo - v) / 3
		}
		if v > hi {
			v -= (v - hi) / 3
		}
		st.values[band.name] = v
	}
}

func copySensors(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
