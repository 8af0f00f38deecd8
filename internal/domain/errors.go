package domain

import (
	"errors"
	"fmt"
)

// ErrBusClosed is returned by bus operations after Close.
var ErrBusClosed = errors.New("smartfactory: bus closed")

// DeliveryError indicates the bus was unreachable after the retry budget
// was exhausted. Non-fatal to the agent; callers log and move on.
type DeliveryError struct {
	Topic    string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s failed after %d attempt(s): %v", e.Topic, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// SchemaMismatchError indicates a malformed or incompatible message. The
// message is dropped, logged, and counted; the agent keeps running.
type SchemaMismatchError struct {
	Kind    string
	Missing []string
	Reason  string
	Err     error
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema mismatch for %s: missing features %v", e.Kind, e.Missing)
	}
	if e.Err != nil {
		return fmt.Sprintf("schema mismatch for %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("schema mismatch for %s: %s", e.Kind, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// ArtifactLoadError indicates the scoring artifact is missing or corrupt.
// Fatal at decision-agent startup; the agent refuses to start.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load scoring artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

// ActuatorError indicates the simulated actuator rejected a command.
// Retried bounded, then recorded as a FAILED outcome.
type ActuatorError struct {
	MachineID string
	Action    ActionKind
	Err       error
}

func (e *ActuatorError) Error() string {
	return fmt.Sprintf("actuator %s for machine %s: %v", e.Action, e.MachineID, e.Err)
}

func (e *ActuatorError) Unwrap() error { return e.Err }
