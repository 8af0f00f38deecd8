package opcua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session
// against real floor equipment.
type Config struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
	Nodes            []NodeConfig  `yaml:"nodes"`
}

// NodeConfig binds one monitored tag to a machine and a sensor key in its
// reading payload.
type NodeConfig struct {
	NodeID    string `yaml:"node_id"`
	MachineID string `yaml:"machine_id"`
	SensorKey string `yaml:"sensor_key"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "SmartFactory Edge"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	for i := range c.Nodes {
		if c.Nodes[i].SensorKey == "" {
			c.Nodes[i].SensorKey = c.Nodes[i].NodeID
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	for _, n := range c.Nodes {
		if n.MachineID == "" {
			return fmt.Errorf("node %q: machine_id is required", n.NodeID)
		}
	}
	return nil
}

// Source subscribes to OPC UA data changes and assembles them into
// per-machine readings, flushed at a fixed interval. It is the hardware
// counterpart of the synthetic generator.
type Source struct {
	cfg       Config
	logger    *slog.Logger
	client    *opcua.Client
	sub       *opcua.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	handleMap map[uint32]NodeConfig

	mu      sync.Mutex
	latest  map[string]map[string]float64 // machine -> sensor -> value
	dirty   map[string]bool
	lastTS  map[string]time.Time
	started bool
}

func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:    cfg,
		logger: logger,
		latest: make(map[string]map[string]float64),
		dirty:  make(map[string]bool),
		lastTS: make(map[string]time.Time),
	}, nil
}

func (s *Source) Start(out chan<- *domain.MachineReading) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("opcua source already started")
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	clientOpts := s.buildClientOptions()

	client, err := opcua.NewClient(s.cfg.Endpoint, clientOpts...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(s.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: s.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	handleMap := make(map[uint32]NodeConfig, len(s.cfg.Nodes))
	for i, node := range s.cfg.Nodes {
		nodeID, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			s.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		handle := uint32(i + 1)
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if s.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(s.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			s.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", node.NodeID, err)
		}
		if len(res.Results) == 0 || res.Results[0].StatusCode != ua.StatusOK {
			s.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q failed", node.NodeID)
		}
		handleMap[handle] = node
	}

	s.mu.Lock()
	s.client = client
	s.sub = sub
	s.cancel = cancel
	s.handleMap = handleMap
	s.started = true
	s.mu.Unlock()

	s.wg.Add(2)
	go s.consume(ctx, notifyCh)
	go s.flushLoop(ctx, out)
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	sub := s.sub
	client := s.client
	s.started = false
	s.cancel = nil
	s.sub = nil
	s.client = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	s.wg.Wait()
	return err
}

func (s *Source) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				s.logger.Warn("opcua notification error", "error", notif.Error)
				continue
			}
			s.applyNotification(notif.Value)
		}
	}
}

func (s *Source) applyNotification(val interface{}) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range data.MonitoredItems {
		nodeCfg, ok := s.handleMap[item.ClientHandle]
		if !ok {
			continue
		}
		fv, ok := variantToFloat(item.Value.Value)
		if !ok {
			s.logger.Warn("opcua skipping node with unsupported value type",
				"node", nodeCfg.NodeID)
			continue
		}
		sensors := s.latest[nodeCfg.MachineID]
		if sensors == nil {
			sensors = make(map[string]float64)
			s.latest[nodeCfg.MachineID] = sensors
		}
		sensors[nodeCfg.SensorKey] = fv
		s.dirty[nodeCfg.MachineID] = true
	}
}

// flushLoop emits one reading per dirty machine each interval. Flush time is
// used as the reading timestamp, which keeps timestamps strictly increasing
// per machine.
func (s *Source) flushLoop(ctx context.Context, out chan<- *domain.MachineReading) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, reading := range s.collectDirty() {
				select {
				case <-ctx.Done():
					return
				case out <- reading:
				}
			}
		}
	}
}

func (s *Source) collectDirty() []*domain.MachineReading {
	s.mu.Lock()
	defer s.mu.Unlock()

	var readings []*domain.MachineReading
	now := time.Now()
	for machine := range s.dirty {
		ts := now
		if !ts.After(s.lastTS[machine]) {
			ts = s.lastTS[machine].Add(time.Millisecond)
		}
		s.lastTS[machine] = ts

		sensors := make(map[string]float64, len(s.latest[machine]))
		for k, v := range s.latest[machine] {
			sensors[k] = v
		}
		readings = append(readings, &domain.MachineReading{
			MachineID: machine,
			Timestamp: ts,
			Sensors:   sensors,
			Status:    domain.StatusRunning,
		})
		delete(s.dirty, machine)
	}
	return readings
}

func (s *Source) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}

	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (s *Source) cleanupOnError(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.TelemetrySource = (*Source)(nil)
