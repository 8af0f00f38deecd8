package bus

import "strings"

// Canonical topic roots. Agents prefix these with the configured namespace.
const (
	TopicRawPrefix      = "telemetry/raw/"
	TopicContextPrefix  = "telemetry/context/"
	TopicDecisionPrefix = "maintenance/decision/"
	TopicActionPrefix   = "maintenance/action/"
	TopicHeartbeat      = "agent/heartbeat"
)

// RawTopic returns the raw-telemetry topic for a machine.
func RawTopic(namespace, machineID string) string {
	return join(namespace, TopicRawPrefix+machineID)
}

// ContextTopic returns the enriched-context topic for a machine.
func ContextTopic(namespace, machineID string) string {
	return join(namespace, TopicContextPrefix+machineID)
}

// DecisionTopic returns the decision topic for a machine.
func DecisionTopic(namespace, machineID string) string {
	return join(namespace, TopicDecisionPrefix+machineID)
}

// ActionTopic returns the action-record topic for a machine.
func ActionTopic(namespace, machineID string) string {
	return join(namespace, TopicActionPrefix+machineID)
}

// HeartbeatTopic returns the shared agent-discovery topic.
func HeartbeatTopic(namespace string) string {
	return join(namespace, TopicHeartbeat)
}

// Pattern appends a multi-level wildcard to a topic prefix.
func Pattern(namespace, prefix string) string {
	return join(namespace, prefix) + "#"
}

// MachineID extracts the trailing machine identifier from a topic.
func MachineID(topic string) string {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}

func join(namespace, topic string) string {
	if namespace == "" {
		return topic
	}
	return strings.TrimSuffix(namespace, "/") + "/" + topic
}

// MatchTopic reports whether topic matches an MQTT-style pattern where "+"
// matches one level and a trailing "#" matches any remainder.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")

	for i, seg := range pp {
		if seg == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if seg == "+" {
			continue
		}
		if seg != tp[i] {
			return false
		}
	}
	return len(pp) == len(tp)
}
