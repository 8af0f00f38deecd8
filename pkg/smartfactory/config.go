package smartfactory

import (
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/opcua"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// BusConfig selects and configures the bus adapter.
	BusConfig = config.BusConfig
	// MQTTConfig holds broker connection details.
	MQTTConfig = bus.MQTTConfig
	// KafkaConfig holds Kafka connection details.
	KafkaConfig = bus.KafkaConfig
	// GeneratorConfig tunes the synthetic telemetry source.
	GeneratorConfig = config.GeneratorConfig
	// ScorerConfig points at the scoring artifact.
	ScorerConfig = config.ScorerConfig
	// OutboxConfig configures durable publish staging.
	OutboxConfig = config.OutboxConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// TimescaleConfig configures the history sink.
	TimescaleConfig = config.TimescaleConfig
	// OPCUAConfig holds OPC UA connection + node details.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig binds a monitored tag to a machine sensor.
	OPCUANodeConfig = opcua.NodeConfig
)

// Bus adapter kinds accepted in BusConfig.Kind.
const (
	BusMem   = config.BusMem
	BusMQTT  = config.BusMQTT
	BusKafka = config.BusKafka
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
