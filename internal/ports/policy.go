package ports

import "time"

// Policy bundles the tunables shared across agents.
type Policy struct {
	WindowSize        int           `yaml:"window_size"`
	CoolDown          time.Duration `yaml:"cool_down"`
	PublishRetries    int           `yaml:"publish_retries"`
	PublishBackoff    time.Duration `yaml:"publish_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	ActionRetries     int           `yaml:"action_retries"`
	ActionBackoff     time.Duration `yaml:"action_backoff"`
	QueueLen          int           `yaml:"queue_len"`
	ShutdownThreshold float64       `yaml:"shutdown_threshold"`
}
