package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the wire schema version stamped on every envelope.
const SchemaVersion = "1.0.0"

// Message kinds carried inside envelopes.
const (
	KindReading   = "machine_reading"
	KindContext   = "machine_status_context"
	KindDecision  = "maintenance_decision"
	KindAction    = "action_confirmation"
	KindHeartbeat = "agent_heartbeat"
)

// Priorities on the envelope metadata.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Envelope wraps every payload crossing the bus with identity and routing
// metadata. Consumers validate kind and schema version at the subscribe
// boundary before touching the payload.
type Envelope struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceAgent   string          `json:"sourceAgent"`
	Kind          string          `json:"kind"`
	SchemaVersion string          `json:"schemaVersion"`
	Priority      string          `json:"priority"`
	TTLSeconds    int             `json:"ttlSeconds,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload for the wire. Marshal failures surface as
// SchemaMismatchError since they indicate an unencodable payload.
func NewEnvelope(sourceAgent, kind string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &SchemaMismatchError{Kind: kind, Reason: "marshal payload", Err: err}
	}
	return &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		SourceAgent:   sourceAgent,
		Kind:          kind,
		SchemaVersion: SchemaVersion,
		Priority:      PriorityNormal,
		Payload:       raw,
	}, nil
}

// Encode serializes the envelope for publishing.
func (e *Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, &SchemaMismatchError{Kind: e.Kind, Reason: "marshal envelope", Err: err}
	}
	return b, nil
}

// DecodeEnvelope parses and validates an envelope of the expected kind.
// Any malformed input becomes a SchemaMismatchError, never a panic.
func DecodeEnvelope(data []byte, wantKind string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &SchemaMismatchError{Kind: wantKind, Reason: "malformed envelope", Err: err}
	}
	if env.Kind != wantKind {
		return nil, &SchemaMismatchError{Kind: wantKind, Reason: "unexpected kind " + env.Kind}
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, &SchemaMismatchError{Kind: wantKind, Reason: "unsupported schema version " + env.SchemaVersion}
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into out.
func (e *Envelope) DecodePayload(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return &SchemaMismatchError{Kind: e.Kind, Reason: "malformed payload", Err: err}
	}
	return nil
}
