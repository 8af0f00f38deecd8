package smartfactory

import (
	base "github.com/sudhindrakini2808/smart-factory-predictive-maintenance/pkg/smartfactory"
)

// Re-exported errors for convenience.
var (
	ErrBusClosed       = base.ErrBusClosed
	ErrActionTapClosed = base.ErrActionTapClosed
)

// Type aliases so consumers can import the module root directly.
type (
	Config          = base.Config
	BusConfig       = base.BusConfig
	MQTTConfig      = base.MQTTConfig
	KafkaConfig     = base.KafkaConfig
	GeneratorConfig = base.GeneratorConfig
	ScorerConfig    = base.ScorerConfig
	OutboxConfig    = base.OutboxConfig
	MetricsConfig   = base.MetricsConfig
	TimescaleConfig = base.TimescaleConfig
	OPCUAConfig     = base.OPCUAConfig
	OPCUANodeConfig = base.OPCUANodeConfig
	Policy          = base.Policy

	Flow          = base.Flow
	Runtime       = base.Runtime
	RuntimeOption = base.RuntimeOption

	MachineReading  = base.MachineReading
	EnrichedContext = base.EnrichedContext
	Decision        = base.Decision
	ActionRecord    = base.ActionRecord
	RiskClass       = base.RiskClass
	ActionKind      = base.ActionKind
	Outcome         = base.Outcome
	Envelope        = base.Envelope
	Heartbeat       = base.Heartbeat
	MachineStatus   = base.MachineStatus

	Bus             = base.Bus
	Message         = base.Message
	Handler         = base.Handler
	Subscription    = base.Subscription
	Scorer          = base.Scorer
	FeatureVector   = base.FeatureVector
	Actuator        = base.Actuator
	ActuatorFunc    = base.ActuatorFunc
	HistorySink     = base.HistorySink
	TelemetrySource = base.TelemetrySource
	Observability   = base.Observability
	Field           = base.Field

	DeliveryError       = base.DeliveryError
	SchemaMismatchError = base.SchemaMismatchError
	ArtifactLoadError   = base.ArtifactLoadError
	ActuatorError       = base.ActuatorError
)

// Enum values and agent names.
const (
	RiskNormal   = base.RiskNormal
	RiskWarning  = base.RiskWarning
	RiskCritical = base.RiskCritical

	ActionNone                = base.ActionNone
	ActionScheduleMaintenance = base.ActionScheduleMaintenance
	ActionThrottle            = base.ActionThrottle
	ActionShutdown            = base.ActionShutdown

	OutcomeSuccess    = base.OutcomeSuccess
	OutcomeFailed     = base.OutcomeFailed
	OutcomeSuppressed = base.OutcomeSuppressed

	StatusRunning = base.StatusRunning
	StatusError   = base.StatusError
	StatusIdle    = base.StatusIdle

	BusMem   = base.BusMem
	BusMQTT  = base.BusMQTT
	BusKafka = base.BusKafka

	AgentGenerator = base.AgentGenerator
	AgentContext   = base.AgentContext
	AgentDecision  = base.AgentDecision
	AgentExecutor  = base.AgentExecutor
	AgentMonitor   = base.AgentMonitor
)

// AllAgents lists every agent in pipeline order.
var AllAgents = base.AllAgents

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...RuntimeOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...RuntimeOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithBus(b Bus) RuntimeOption {
	return base.WithBus(b)
}

func WithScorer(s Scorer) RuntimeOption {
	return base.WithScorer(s)
}

func WithActuator(a Actuator) RuntimeOption {
	return base.WithActuator(a)
}

func WithHistorySink(s HistorySink) RuntimeOption {
	return base.WithHistorySink(s)
}

func WithSource(src TelemetrySource) RuntimeOption {
	return base.WithSource(src)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithAgents(names ...string) RuntimeOption {
	return base.WithAgents(names...)
}

// Actuator and sink adapters.
func NewCallbackActuator(fn ActuatorFunc) Actuator {
	return base.NewCallbackActuator(fn)
}

func NewChannelActionTap(buffer int) (HistorySink, <-chan ActionRecord, func()) {
	return base.NewChannelActionTap(buffer)
}
