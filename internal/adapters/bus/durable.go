package bus

import (
	"context"
	"sync"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// DurablePublisher wraps a Bus with an on-disk outbox. Publish appends the
// message and returns; a single drain goroutine forwards entries to the
// broker in append order, retrying with capped backoff across outages and
// committing each entry only after the broker accepts it. Uncommitted
// entries from a previous run are replayed on startup, so accepted
// publishes survive both broker outages and process restarts.
type DurablePublisher struct {
	bus    ports.Bus
	outbox ports.Outbox
	obs    ports.Observability

	backoff    time.Duration
	maxBackoff time.Duration

	notify   chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewDurablePublisher(bus ports.Bus, outbox ports.Outbox, pol ports.Policy, obs ports.Observability) *DurablePublisher {
	backoff := pol.PublishBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	maxBackoff := pol.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	p := &DurablePublisher{
		bus:        bus,
		outbox:     outbox,
		obs:        obs,
		backoff:    backoff,
		maxBackoff: maxBackoff,
		notify:     make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if stats := outbox.Stats(); stats.OldestUncommitted <= stats.LatestAppended && stats.LatestAppended > 0 {
		obs.LogInfo("outbox_replay_pending",
			ports.Field{Key: "from", Value: stats.OldestUncommitted},
			ports.Field{Key: "to", Value: stats.LatestAppended})
	}

	go p.drain()
	return p
}

// Publish stages the message durably; delivery happens asynchronously in
// append order.
func (p *DurablePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	if _, err := p.outbox.Append(ports.OutboxMessage{Topic: topic, Payload: payload}); err != nil {
		return &domain.DeliveryError{Topic: topic, Attempts: 1, Err: err}
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// PublishRetained bypasses the outbox: retained messages carry last-value
// semantics and replaying a stale one after an outage would be wrong.
func (p *DurablePublisher) PublishRetained(ctx context.Context, topic string, payload []byte) error {
	return p.bus.PublishRetained(ctx, topic, payload)
}

func (p *DurablePublisher) Subscribe(ctx context.Context, topicPattern string, h ports.Handler) (ports.Subscription, error) {
	return p.bus.Subscribe(ctx, topicPattern, h)
}

func (p *DurablePublisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	select {
	case <-p.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.bus.Close(ctx)
}

func (p *DurablePublisher) drain() {
	defer close(p.doneCh)
	ctx := context.Background()

	for {
		stats := p.outbox.Stats()
		if stats.LatestAppended == 0 || stats.OldestUncommitted > stats.LatestAppended {
			select {
			case <-p.stopCh:
				return
			case <-p.notify:
			case <-time.After(time.Second):
			}
			continue
		}

		backoff := p.backoff
		err := p.outbox.Iterate(stats.OldestUncommitted, func(id ports.OutboxEntryID, msg ports.OutboxMessage) error {
			for {
				pubErr := p.bus.Publish(ctx, msg.Topic, msg.Payload)
				if pubErr == nil {
					if err := p.outbox.Commit(id); err != nil {
						p.obs.LogError("outbox_commit_failed", err)
					}
					return nil
				}
				p.obs.LogWarn("outbox_redeliver",
					ports.Field{Key: "topic", Value: msg.Topic},
					ports.Field{Key: "backoff", Value: backoff.String()})
				p.obs.IncCounter("factory_outbox_redelivers_total", 1)

				select {
				case <-p.stopCh:
					return pubErr
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > p.maxBackoff {
					backoff = p.maxBackoff
				}
			}
		})
		if err != nil {
			select {
			case <-p.stopCh:
				return
			default:
			}
		}
	}
}

var _ ports.Bus = (*DurablePublisher)(nil)
