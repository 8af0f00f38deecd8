package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

var errOffline = errors.New("broker offline")

// MemBus is an in-process broker used for simulation and tests. Each
// subscription gets a bounded FIFO queue drained by a single goroutine, so
// per-machine delivery order matches publish order. Slow subscribers with a
// full queue have the message dropped for them only; drops are counted.
type MemBus struct {
	queueLen int

	mu       sync.RWMutex
	subs     map[*memSub]struct{}
	retained map[string][]byte
	closed   bool
	offline  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dropped atomic.Uint64
}

type memSub struct {
	bus     *MemBus
	pattern string
	handler ports.Handler
	ch      chan ports.Message
	done    chan struct{}
	once    sync.Once
}

// NewMemBus creates a broker whose subscription queues hold queueLen
// messages each.
func NewMemBus(queueLen int) *MemBus {
	if queueLen <= 0 {
		queueLen = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MemBus{
		queueLen: queueLen,
		subs:     make(map[*memSub]struct{}),
		retained: make(map[string][]byte),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (b *MemBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.publish(ctx, topic, payload, false)
}

func (b *MemBus) PublishRetained(ctx context.Context, topic string, payload []byte) error {
	return b.publish(ctx, topic, payload, true)
}

func (b *MemBus) publish(_ context.Context, topic string, payload []byte, retain bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.ErrBusClosed
	}
	if b.offline {
		b.mu.Unlock()
		return &domain.DeliveryError{Topic: topic, Attempts: 1, Err: errOffline}
	}
	if retain {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		b.retained[topic] = cp
	}
	targets := make([]*memSub, 0, len(b.subs))
	for s := range b.subs {
		if MatchTopic(s.pattern, topic) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	msg := ports.Message{Topic: topic, Key: MachineID(topic), Payload: payload}
	for _, s := range targets {
		select {
		case s.ch <- msg:
		case <-s.done:
		default:
			// Subscriber queue full: drop for this subscriber only.
			b.dropped.Add(1)
		}
	}
	return nil
}

func (b *MemBus) Subscribe(_ context.Context, topicPattern string, h ports.Handler) (ports.Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, domain.ErrBusClosed
	}
	s := &memSub{
		bus:     b,
		pattern: topicPattern,
		handler: h,
		ch:      make(chan ports.Message, b.queueLen),
		done:    make(chan struct{}),
	}
	b.subs[s] = struct{}{}
	// Replay retained messages so late subscribers see the last value.
	for topic, payload := range b.retained {
		if MatchTopic(topicPattern, topic) {
			s.ch <- ports.Message{Topic: topic, Key: MachineID(topic), Payload: payload}
		}
	}
	b.mu.Unlock()

	b.wg.Add(1)
	go s.run()
	return s, nil
}

func (s *memSub) run() {
	defer s.bus.wg.Done()
	for {
		select {
		case <-s.bus.ctx.Done():
			return
		case <-s.done:
			return
		case msg := <-s.ch:
			// Handler errors are the subscriber's concern; the broker
			// just moves on to the next message.
			_ = s.handler(s.bus.ctx, msg)
		}
	}
}

func (s *memSub) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}

// SetOffline simulates a broker outage: publishes fail with DeliveryError
// until the bus is brought back online.
func (b *MemBus) SetOffline(offline bool) {
	b.mu.Lock()
	b.offline = offline
	b.mu.Unlock()
}

// Dropped reports messages lost to subscriber backpressure.
func (b *MemBus) Dropped() uint64 { return b.dropped.Load() }

func (b *MemBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subs = make(map[*memSub]struct{})
	b.mu.Unlock()

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.Bus = (*MemBus)(nil)
