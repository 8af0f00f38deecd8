package bus

import "testing"

func TestTopicBuilders(t *testing.T) {
	if got := RawTopic("plant-a", "CNC001"); got != "plant-a/telemetry/raw/CNC001" {
		t.Fatalf("raw topic: %s", got)
	}
	if got := DecisionTopic("", "ROBOT001"); got != "maintenance/decision/ROBOT001" {
		t.Fatalf("decision topic: %s", got)
	}
	if got := HeartbeatTopic("plant-a/"); got != "plant-a/agent/heartbeat" {
		t.Fatalf("heartbeat topic: %s", got)
	}
	if got := Pattern("", TopicRawPrefix); got != "telemetry/raw/#" {
		t.Fatalf("pattern: %s", got)
	}
}

func TestMachineIDExtraction(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"telemetry/raw/CNC001", "CNC001"},
		{"plant-a/maintenance/action/PRESS001", "PRESS001"},
		{"heartbeat", ""},
		{"telemetry/raw/", ""},
	}
	for _, tc := range cases {
		if got := MachineID(tc.topic); got != tc.want {
			t.Fatalf("machine id of %q: expected %q, got %q", tc.topic, tc.want, got)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"telemetry/raw/CNC001", "telemetry/raw/CNC001", true},
		{"telemetry/raw/+", "telemetry/raw/CNC001", true},
		{"telemetry/raw/+", "telemetry/raw/CNC001/extra", false},
		{"telemetry/raw/#", "telemetry/raw/CNC001", true},
		{"telemetry/#", "telemetry/raw/CNC001", true},
		{"#", "anything/at/all", true},
		{"telemetry/raw/#", "telemetry/context/CNC001", false},
		{"telemetry/+/CNC001", "telemetry/raw/CNC001", true},
		{"telemetry/raw/CNC001", "telemetry/raw/CNC002", false},
		{"telemetry/raw", "telemetry/raw/CNC001", false},
	}
	for _, tc := range cases {
		if got := MatchTopic(tc.pattern, tc.topic); got != tc.want {
			t.Fatalf("match %q against %q: expected %v, got %v", tc.topic, tc.pattern, tc.want, got)
		}
	}
}
