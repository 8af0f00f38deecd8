package domain

import (
	"fmt"
	"time"
)

// RiskClass is the ordered failure-risk classification of a machine.
// NORMAL < WARNING < CRITICAL.
type RiskClass int

const (
	RiskNormal RiskClass = iota
	RiskWarning
	RiskCritical
)

func (r RiskClass) String() string {
	switch r {
	case RiskNormal:
		return "NORMAL"
	case RiskWarning:
		return "WARNING"
	case RiskCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("RiskClass(%d)", int(r))
	}
}

// MarshalText encodes the class by name so wire payloads stay readable.
func (r RiskClass) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RiskClass) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NORMAL":
		*r = RiskNormal
	case "WARNING":
		*r = RiskWarning
	case "CRITICAL":
		*r = RiskCritical
	default:
		return fmt.Errorf("unknown risk class %q", b)
	}
	return nil
}

// Decision is the output of scoring one EnrichedContext. Immutable.
// Confidence is the raw score in [0,1]; Action is the recommended action,
// de-duplicated downstream by the action executor.
type Decision struct {
	MachineID      string    `json:"machineId"`
	Timestamp      time.Time `json:"timestamp"`
	Classification RiskClass `json:"classification"`
	Confidence     float64   `json:"confidence"`
	Action         ActionKind `json:"recommendedAction"`
	ScorerVersion  string    `json:"scorerVersion,omitempty"`
}
