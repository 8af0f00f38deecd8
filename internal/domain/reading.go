package domain

import "time"

// MachineStatus is the operating-mode tag carried on raw telemetry.
type MachineStatus string

const (
	StatusRunning MachineStatus = "running"
	StatusError   MachineStatus = "error"
	StatusIdle    MachineStatus = "idle"
)

// MachineReading is the canonical unit of raw machine telemetry.
// Immutable once published; timestamps are strictly increasing per machine.
type MachineReading struct {
	MachineID string             `json:"machineId"`
	Timestamp time.Time          `json:"timestamp"`
	Sensors   map[string]float64 `json:"sensors"`
	Status    MachineStatus      `json:"status,omitempty"`
}

// Clone returns a deep copy so downstream stages can never mutate a
// published reading.
func (r *MachineReading) Clone() *MachineReading {
	cp := *r
	cp.Sensors = copyValues(r.Sensors)
	return &cp
}

func copyValues(src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
