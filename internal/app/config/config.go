package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/opcua"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// Bus adapter kinds selectable in config.
const (
	BusMem   = "mem"
	BusMQTT  = "mqtt"
	BusKafka = "kafka"
)

type Config struct {
	Namespace string          `yaml:"namespace"`
	Bus       BusConfig       `yaml:"bus"`
	Policy    ports.Policy    `yaml:"policy"`
	Generator GeneratorConfig `yaml:"generator"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Timescale TimescaleConfig `yaml:"timescale"`
	OPCUA     opcua.Config    `yaml:"opcua"`
}

type BusConfig struct {
	Kind  string          `yaml:"kind"`
	MQTT  bus.MQTTConfig  `yaml:"mqtt"`
	Kafka bus.KafkaConfig `yaml:"kafka"`
}

type GeneratorConfig struct {
	Machines         []string      `yaml:"machines"`
	Interval         time.Duration `yaml:"interval"`
	FaultProbability float64       `yaml:"fault_probability"`
	FaultDuration    int           `yaml:"fault_duration"`
	Seed             int64         `yaml:"seed"`
}

type ScorerConfig struct {
	ArtifactPath string `yaml:"artifact_path"`
}

// OutboxConfig enables the durable publish staging area; empty dir disables
// it and publishes go straight to the broker.
type OutboxConfig struct {
	Dir string `yaml:"dir"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// TimescaleConfig enables the history sink when ConnString is set.
type TimescaleConfig struct {
	ConnString    string `yaml:"conn_string"`
	DecisionTable string `yaml:"decision_table"`
	ActionTable   string `yaml:"action_table"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Bus.Kind == "" {
		c.Bus.Kind = BusMem
	}
	if c.Policy.WindowSize == 0 {
		c.Policy.WindowSize = 10
	}
	if c.Policy.CoolDown == 0 {
		c.Policy.CoolDown = 60 * time.Second
	}
	if c.Policy.PublishRetries == 0 {
		c.Policy.PublishRetries = 3
	}
	if c.Policy.PublishBackoff == 0 {
		c.Policy.PublishBackoff = 250 * time.Millisecond
	}
	if c.Policy.MaxBackoff == 0 {
		c.Policy.MaxBackoff = 30 * time.Second
	}
	if c.Policy.ActionRetries == 0 {
		c.Policy.ActionRetries = 3
	}
	if c.Policy.ActionBackoff == 0 {
		c.Policy.ActionBackoff = 100 * time.Millisecond
	}
	if c.Policy.QueueLen == 0 {
		c.Policy.QueueLen = 1024
	}
	if c.Policy.ShutdownThreshold == 0 {
		c.Policy.ShutdownThreshold = 0.95
	}
	if len(c.Generator.Machines) == 0 {
		c.Generator.Machines = []string{"CNC001", "ROBOT001", "CONV001"}
	}
	if c.Generator.Interval == 0 {
		c.Generator.Interval = time.Second
	}
	if c.Generator.FaultProbability == 0 {
		c.Generator.FaultProbability = 0.02
	}
	if c.Generator.FaultDuration == 0 {
		c.Generator.FaultDuration = 10
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Timescale.DecisionTable == "" {
		c.Timescale.DecisionTable = "decisions"
	}
	if c.Timescale.ActionTable == "" {
		c.Timescale.ActionTable = "actions"
	}

	if c.OPCUA.Endpoint != "" {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	switch c.Bus.Kind {
	case BusMem:
	case BusMQTT:
		if err := c.Bus.MQTT.Validate(); err != nil {
			return fmt.Errorf("bus.mqtt: %w", err)
		}
	case BusKafka:
		if err := c.Bus.Kafka.Validate(); err != nil {
			return fmt.Errorf("bus.kafka: %w", err)
		}
	default:
		return fmt.Errorf("bus.kind must be one of %s, %s, %s", BusMem, BusMQTT, BusKafka)
	}

	if c.Policy.ShutdownThreshold < 0 || c.Policy.ShutdownThreshold > 1 {
		return fmt.Errorf("policy.shutdown_threshold must be in [0,1]")
	}
	if c.Generator.FaultProbability < 0 || c.Generator.FaultProbability > 1 {
		return fmt.Errorf("generator.fault_probability must be in [0,1]")
	}
	if c.OPCUA.Endpoint != "" {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	return nil
}
