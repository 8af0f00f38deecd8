package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// MQTTConfig captures the runtime details required to reach the broker.
type MQTTConfig struct {
	BrokerURL      string        `yaml:"broker_url"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	PublishRetries int           `yaml:"publish_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

func (c *MQTTConfig) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "smart-factory"
	}
	if c.QoS == 0 {
		c.QoS = 1
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	if c.PublishRetries <= 0 {
		c.PublishRetries = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
}

func (c *MQTTConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker_url is required")
	}
	return nil
}

// MQTTBus adapts an MQTT broker to the Bus port. Reconnects are handled by
// the client with exponential backoff capped at MaxBackoff; registered
// subscriptions are re-established on every (re)connect. QoS 1 gives
// at-least-once delivery; messages in flight during an outage may be lost.
type MQTTBus struct {
	cfg    MQTTConfig
	obs    ports.Observability
	client mqtt.Client

	mu   sync.Mutex
	subs map[*mqttSub]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

type mqttSub struct {
	bus     *MQTTBus
	pattern string
	handler ports.Handler
}

// NewMQTTBus connects to the broker, failing if the first connect does not
// complete within the configured timeout.
func NewMQTTBus(cfg MQTTConfig, obs ports.Observability) (*MQTTBus, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &MQTTBus{
		cfg:    cfg,
		obs:    obs,
		subs:   make(map[*mqttSub]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(cfg.MaxBackoff).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.InitialBackoff).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOrderMatters(true).
		SetCleanSession(false).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(b.onConnectionLost)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		cancel()
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.BrokerURL, err)
	}
	return b, nil
}

func (b *MQTTBus) onConnect(client mqtt.Client) {
	b.obs.LogInfo("mqtt_connected", ports.Field{Key: "broker", Value: b.cfg.BrokerURL})
	b.obs.SetGauge("factory_bus_connected", 1)

	b.mu.Lock()
	subs := make([]*mqttSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if err := s.attach(client); err != nil {
			b.obs.LogError("mqtt_resubscribe_failed", err,
				ports.Field{Key: "pattern", Value: s.pattern})
		}
	}
}

func (b *MQTTBus) onConnectionLost(_ mqtt.Client, err error) {
	b.obs.SetGauge("factory_bus_connected", 0)
	b.obs.LogWarn("mqtt_connection_lost", ports.Field{Key: "error", Value: err})
}

func (b *MQTTBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.publish(ctx, topic, payload, false)
}

func (b *MQTTBus) PublishRetained(ctx context.Context, topic string, payload []byte) error {
	return b.publish(ctx, topic, payload, true)
}

func (b *MQTTBus) publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	backoff := b.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= b.cfg.PublishRetries; attempt++ {
		token := b.client.Publish(topic, b.cfg.QoS, retain, payload)
		if token.WaitTimeout(b.cfg.PublishTimeout) && token.Error() == nil {
			return nil
		}
		lastErr = token.Error()
		if lastErr == nil {
			lastErr = fmt.Errorf("publish ack timed out after %s", b.cfg.PublishTimeout)
		}

		if attempt == b.cfg.PublishRetries {
			break
		}
		select {
		case <-ctx.Done():
			return &domain.DeliveryError{Topic: topic, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.cfg.MaxBackoff {
			backoff = b.cfg.MaxBackoff
		}
	}
	return &domain.DeliveryError{Topic: topic, Attempts: b.cfg.PublishRetries, Err: lastErr}
}

func (b *MQTTBus) Subscribe(_ context.Context, topicPattern string, h ports.Handler) (ports.Subscription, error) {
	s := &mqttSub{bus: b, pattern: topicPattern, handler: h}
	if err := s.attach(b.client); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s, nil
}

func (s *mqttSub) attach(client mqtt.Client) error {
	token := client.Subscribe(s.pattern, s.bus.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		msg := ports.Message{Topic: m.Topic(), Key: MachineID(m.Topic()), Payload: m.Payload()}
		if err := s.handler(s.bus.ctx, msg); err != nil {
			s.bus.obs.LogError("mqtt_handler_failed", err,
				ports.Field{Key: "topic", Value: m.Topic()})
		}
	})
	if !token.WaitTimeout(s.bus.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt subscribe %s timed out", s.pattern)
	}
	return token.Error()
}

func (s *mqttSub) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()

	token := s.bus.client.Unsubscribe(s.pattern)
	if !token.WaitTimeout(s.bus.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt unsubscribe %s timed out", s.pattern)
	}
	return token.Error()
}

func (b *MQTTBus) Close(ctx context.Context) error {
	b.cancel()
	quiesce := uint(250)
	if dl, ok := ctx.Deadline(); ok {
		if ms := time.Until(dl).Milliseconds(); ms > 0 {
			quiesce = uint(ms)
		}
	}
	b.client.Disconnect(quiesce)
	return nil
}

var _ ports.Bus = (*MQTTBus)(nil)
