package domain

import "time"

// EnrichedContext is a MachineReading plus features derived from a bounded
// per-machine window of recent readings.
type EnrichedContext struct {
	MachineID        string             `json:"machineId"`
	Timestamp        time.Time          `json:"timestamp"`
	Sensors          map[string]float64 `json:"sensors"`
	DerivedFeatures  map[string]float64 `json:"derivedFeatures"`
	OperatingMode    MachineStatus      `json:"operatingMode"`
	AnomalySuspected bool               `json:"anomalySuspected"`
	WindowLen        int                `json:"windowLen"`
}

// Feature returns a derived feature by name.
func (c *EnrichedContext) Feature(name string) (float64, bool) {
	v, ok := c.DerivedFeatures[name]
	return v, ok
}
