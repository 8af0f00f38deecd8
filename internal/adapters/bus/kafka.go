package bus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// KafkaConfig captures the connection details for a Kafka-backed bus.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	GroupID      string        `yaml:"group_id"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Retries      int           `yaml:"retries"`
	Backoff      time.Duration `yaml:"backoff"`
}

func (c *KafkaConfig) ApplyDefaults() {
	if c.GroupID == "" {
		c.GroupID = "smart-factory"
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 250 * time.Millisecond
	}
}

func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one broker is required")
	}
	return nil
}

// KafkaBus maps the slash-separated logical topics onto Kafka topics: the
// machine-id suffix becomes the message key, so the Hash balancer keeps
// per-machine publish order within a partition. "telemetry/raw/M1" is
// written to topic "telemetry.raw" with key "M1"; the pattern
// "telemetry/raw/#" consumes that topic.
type KafkaBus struct {
	cfg    KafkaConfig
	obs    ports.Observability
	writer *kafka.Writer

	mu   sync.Mutex
	subs map[*kafkaSub]struct{}
}

type kafkaSub struct {
	bus    *KafkaBus
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKafkaBus(cfg KafkaConfig, obs ports.Observability) (*KafkaBus, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaBus{
		cfg:    cfg,
		obs:    obs,
		writer: writer,
		subs:   make(map[*kafkaSub]struct{}),
	}, nil
}

func (b *KafkaBus) Publish(ctx context.Context, topic string, payload []byte) error {
	kafkaTopic, key := SplitMachineTopic(topic)

	backoff := b.cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= b.cfg.Retries; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, b.cfg.WriteTimeout)
		err := b.writer.WriteMessages(writeCtx, kafka.Message{
			Topic: kafkaTopic,
			Key:   []byte(key),
			Value: payload,
		})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == b.cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return &domain.DeliveryError{Topic: topic, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return &domain.DeliveryError{Topic: topic, Attempts: b.cfg.Retries, Err: lastErr}
}

// PublishRetained behaves like Publish; Kafka retains everything by log
// design, so late consumers replay from their group offset instead.
func (b *KafkaBus) PublishRetained(ctx context.Context, topic string, payload []byte) error {
	return b.Publish(ctx, topic, payload)
}

func (b *KafkaBus) Subscribe(ctx context.Context, topicPattern string, h ports.Handler) (ports.Subscription, error) {
	kafkaTopic, _ := SplitMachineTopic(strings.TrimSuffix(strings.TrimSuffix(topicPattern, "#"), "/"))
	if strings.HasSuffix(topicPattern, "#") {
		kafkaTopic = dotted(strings.TrimSuffix(strings.TrimSuffix(topicPattern, "#"), "/"))
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.cfg.Brokers,
		GroupID: b.cfg.GroupID + "." + kafkaTopic,
		Topic:   kafkaTopic,
	})

	subCtx, cancel := context.WithCancel(context.Background())
	s := &kafkaSub{bus: b, reader: reader, cancel: cancel, done: make(chan struct{})}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.run(subCtx, h)
	return s, nil
}

func (s *kafkaSub) run(ctx context.Context, h ports.Handler) {
	defer close(s.done)
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			s.bus.obs.LogWarn("kafka_fetch_failed", ports.Field{Key: "error", Value: err})
			continue
		}

		logical := strings.ReplaceAll(m.Topic, ".", "/")
		if len(m.Key) > 0 {
			logical += "/" + string(m.Key)
		}
		msg := ports.Message{Topic: logical, Key: string(m.Key), Payload: m.Value}
		if err := h(ctx, msg); err != nil {
			s.bus.obs.LogError("kafka_handler_failed", err,
				ports.Field{Key: "topic", Value: logical})
		}
		// Commit regardless: schema failures are dropped, not redelivered.
		if err := s.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.bus.obs.LogWarn("kafka_commit_failed", ports.Field{Key: "error", Value: err})
		}
	}
}

func (s *kafkaSub) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()

	s.cancel()
	err := s.reader.Close()
	<-s.done
	return err
}

func (b *KafkaBus) Close(ctx context.Context) error {
	b.mu.Lock()
	subs := make([]*kafkaSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.subs = make(map[*kafkaSub]struct{})
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		s.cancel()
		if err := s.reader.Close(); err != nil {
			errs = append(errs, err)
		}
		select {
		case <-s.done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	if err := b.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SplitMachineTopic separates the machine-id suffix from a machine-scoped
// logical topic and converts the remainder to Kafka's dotted form. Topics
// without a machine suffix (the heartbeat) map whole, with an empty key.
func SplitMachineTopic(topic string) (kafkaTopic, key string) {
	for _, prefix := range []string{TopicRawPrefix, TopicContextPrefix, TopicDecisionPrefix, TopicActionPrefix} {
		if idx := strings.Index(topic, prefix); idx >= 0 && len(topic) > idx+len(prefix) {
			base := topic[:idx+len(prefix)-1] // drop the trailing slash
			return dotted(base), topic[idx+len(prefix):]
		}
	}
	return dotted(topic), ""
}

func dotted(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

var _ ports.Bus = (*KafkaBus)(nil)
