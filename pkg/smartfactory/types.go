package smartfactory

import (
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// Domain types re-exported so embedders never import internal packages.
type (
	// MachineReading is one raw telemetry sample from a machine.
	MachineReading = domain.MachineReading
	// EnrichedContext is a reading plus window-derived features.
	EnrichedContext = domain.EnrichedContext
	// Decision is the scored risk classification with a recommended action.
	Decision = domain.Decision
	// ActionRecord is the terminal outcome of one decided action.
	ActionRecord = domain.ActionRecord
	// RiskClass orders failure risk: NORMAL < WARNING < CRITICAL.
	RiskClass = domain.RiskClass
	// ActionKind enumerates the control commands.
	ActionKind = domain.ActionKind
	// Outcome is the terminal status of an action.
	Outcome = domain.Outcome
	// Envelope wraps every message crossing the bus.
	Envelope = domain.Envelope
	// Heartbeat is the retained agent-discovery announcement.
	Heartbeat = domain.Heartbeat
	// MachineStatus is the operating-mode tag on raw telemetry.
	MachineStatus = domain.MachineStatus
)

// Port interfaces open for caller-provided implementations.
type (
	// Bus is the pub/sub transport between agents.
	Bus = ports.Bus
	// Message is one delivery from the bus.
	Message = ports.Message
	// Handler consumes one message.
	Handler = ports.Handler
	// Subscription is a handle for a registered handler.
	Subscription = ports.Subscription
	// Scorer is the versioned risk-scoring artifact.
	Scorer = ports.Scorer
	// FeatureVector is a named feature set.
	FeatureVector = ports.FeatureVector
	// Actuator carries decided actions to equipment.
	Actuator = ports.Actuator
	// HistorySink persists decisions and action records.
	HistorySink = ports.HistorySink
	// TelemetrySource streams readings from real equipment.
	TelemetrySource = ports.TelemetrySource
	// Observability emits structured logs and metrics.
	Observability = ports.Observability
	// Field is a structured log field.
	Field = ports.Field
	// Policy bundles the shared agent tunables.
	Policy = ports.Policy
)

// Enum values re-exported for call sites.
const (
	RiskNormal   = domain.RiskNormal
	RiskWarning  = domain.RiskWarning
	RiskCritical = domain.RiskCritical

	ActionNone                = domain.ActionNone
	ActionScheduleMaintenance = domain.ActionScheduleMaintenance
	ActionThrottle            = domain.ActionThrottle
	ActionShutdown            = domain.ActionShutdown

	OutcomeSuccess    = domain.OutcomeSuccess
	OutcomeFailed     = domain.OutcomeFailed
	OutcomeSuppressed = domain.OutcomeSuppressed

	StatusRunning = domain.StatusRunning
	StatusError   = domain.StatusError
	StatusIdle    = domain.StatusIdle
)

// ErrBusClosed is returned by bus operations after Close.
var ErrBusClosed = domain.ErrBusClosed

// Typed errors, usable with errors.As.
type (
	// DeliveryError reports an exhausted publish retry budget.
	DeliveryError = domain.DeliveryError
	// SchemaMismatchError reports a malformed or incompatible message.
	SchemaMismatchError = domain.SchemaMismatchError
	// ArtifactLoadError reports a missing or corrupt scoring artifact.
	ArtifactLoadError = domain.ArtifactLoadError
	// ActuatorError reports a rejected machine command.
	ActuatorError = domain.ActuatorError
)
