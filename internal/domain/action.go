package domain

import (
	"fmt"
	"time"
)

// ActionKind enumerates the control commands the executor can issue.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionScheduleMaintenance
	ActionThrottle
	ActionShutdown
)

func (a ActionKind) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionScheduleMaintenance:
		return "SCHEDULE_MAINTENANCE"
	case ActionThrottle:
		return "THROTTLE"
	case ActionShutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(a))
	}
}

func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NONE":
		*a = ActionNone
	case "SCHEDULE_MAINTENANCE":
		*a = ActionScheduleMaintenance
	case "THROTTLE":
		*a = ActionThrottle
	case "SHUTDOWN":
		*a = ActionShutdown
	default:
		return fmt.Errorf("unknown action kind %q", b)
	}
	return nil
}

// Outcome is the terminal status of an executed (or suppressed) action.
type Outcome string

const (
	OutcomeSuccess    Outcome = "SUCCESS"
	OutcomeFailed     Outcome = "FAILED"
	OutcomeSuppressed Outcome = "SUPPRESSED"
)

// ActionRecord is the terminal event of the pipeline: what was done (or
// deliberately not done) for a machine, and how it went.
type ActionRecord struct {
	MachineID string     `json:"machineId"`
	Timestamp time.Time  `json:"timestamp"`
	Action    ActionKind `json:"action"`
	Outcome   Outcome    `json:"outcome"`
	Attempts  int        `json:"attempts,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}
