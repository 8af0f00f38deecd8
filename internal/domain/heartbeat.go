package domain

import "time"

// Capability describes one message kind an agent consumes or produces.
type Capability struct {
	Kind          string `json:"kind"`
	SchemaVersion string `json:"schemaVersion"`
}

// Heartbeat is the periodic agent-discovery announcement published retained
// so late subscribers still learn the active agent topology.
type Heartbeat struct {
	AgentID   string       `json:"agentId"`
	Timestamp time.Time    `json:"timestamp"`
	Consumes  []Capability `json:"consumes,omitempty"`
	Produces  []Capability `json:"produces,omitempty"`
	Status    string       `json:"status"`
}
