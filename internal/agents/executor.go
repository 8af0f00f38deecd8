package agents

import (
	"context"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/adapters/bus"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/domain"
	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

// ActionExecutorConfig tunes the terminal action stage.
type ActionExecutorConfig struct {
	AgentID       string
	Namespace     string
	CoolDown      time.Duration
	ActionRetries int
	ActionBackoff time.Duration
}

func (c *ActionExecutorConfig) applyDefaults() {
	if c.AgentID == "" {
		c.AgentID = "action-execution"
	}
	if c.CoolDown <= 0 {
		c.CoolDown = 60 * time.Second
	}
	if c.ActionRetries <= 0 {
		c.ActionRetries = 3
	}
	if c.ActionBackoff <= 0 {
		c.ActionBackoff = 100 * time.Millisecond
	}
}

type lastAction struct {
	kind domain.ActionKind
	at   time.Time
}

// ActionExecutor carries decisions to the actuator. The same action for the
// same machine inside the cool-down window is suppressed: recorded with a
// SUPPRESSED outcome but never re-executed, so one sustained fault cannot
// hammer the floor with duplicate commands.
type ActionExecutor struct {
	cfg      ActionExecutorConfig
	bus      ports.Bus
	actuator ports.Actuator
	obs      ports.Observability
	sink     ports.HistorySink // optional

	last map[string]lastAction
	now  func() time.Time
}

func NewActionExecutor(cfg ActionExecutorConfig, b ports.Bus, act ports.Actuator,
	obs ports.Observability, sink ports.HistorySink) *ActionExecutor {

	cfg.applyDefaults()
	return &ActionExecutor{
		cfg:      cfg,
		bus:      b,
		actuator: act,
		obs:      obs,
		sink:     sink,
		last:     make(map[string]lastAction),
		now:      time.Now,
	}
}

func (e *ActionExecutor) Run(ctx context.Context) error {
	pattern := bus.Pattern(e.cfg.Namespace, bus.TopicDecisionPrefix)
	sub, err := e.bus.Subscribe(ctx, pattern, e.handle)
	if err != nil {
		return err
	}

	e.obs.LogInfo("action_executor_started",
		ports.Field{Key: "cool_down", Value: e.cfg.CoolDown.String()})

	<-ctx.Done()
	_ = sub.Unsubscribe()
	e.obs.LogInfo("action_executor_stopped")
	return ctx.Err()
}

func (e *ActionExecutor) handle(ctx context.Context, msg ports.Message) error {
	started := time.Now()
	e.obs.IncCounter("factory_consumed_total", 1)

	env, err := domain.DecodeEnvelope(msg.Payload, domain.KindDecision)
	if err != nil {
		e.rejectSchema(msg.Topic, err)
		return nil
	}
	var decision domain.Decision
	if err := env.DecodePayload(&decision); err != nil {
		e.rejectSchema(msg.Topic, err)
		return nil
	}

	if decision.Action == domain.ActionNone {
		return nil
	}

	record := e.execute(ctx, &decision)
	e.publishRecord(ctx, record)

	e.obs.ObserveLatency("factory_action_latency_seconds", time.Since(started).Seconds())
	return nil
}

func (e *ActionExecutor) execute(ctx context.Context, decision *domain.Decision) *domain.ActionRecord {
	now := e.now()

	if prev, ok := e.last[decision.MachineID]; ok &&
		prev.kind == decision.Action && now.Sub(prev.at) < e.cfg.CoolDown {
		e.obs.IncCounter("factory_actions_suppressed_total", 1)
		e.obs.LogInfo("action_suppressed",
			ports.Field{Key: "machine", Value: decision.MachineID},
			ports.Field{Key: "action", Value: decision.Action.String()})
		return &domain.ActionRecord{
			MachineID: decision.MachineID,
			Timestamp: now,
			Action:    decision.Action,
			Outcome:   domain.OutcomeSuppressed,
			Detail:    "within cool-down of previous " + decision.Action.String(),
		}
	}

	attempts := 0
	backoff := e.cfg.ActionBackoff
	var execErr error
	for attempts < e.cfg.ActionRetries {
		attempts++
		execErr = e.actuator.Execute(ctx, decision.MachineID, decision.Action)
		if execErr == nil {
			break
		}
		if attempts == e.cfg.ActionRetries {
			break
		}
		select {
		case <-ctx.Done():
			execErr = ctx.Err()
			attempts = e.cfg.ActionRetries
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	if execErr != nil {
		e.obs.IncCounter("factory_actions_failed_total", 1)
		actErr := &domain.ActuatorError{MachineID: decision.MachineID, Action: decision.Action, Err: execErr}
		e.obs.LogError("action_failed", actErr,
			ports.Field{Key: "attempts", Value: attempts})
		return &domain.ActionRecord{
			MachineID: decision.MachineID,
			Timestamp: e.now(),
			Action:    decision.Action,
			Outcome:   domain.OutcomeFailed,
			Attempts:  attempts,
			Detail:    execErr.Error(),
		}
	}

	e.last[decision.MachineID] = lastAction{kind: decision.Action, at: now}
	e.obs.IncCounter("factory_actions_executed_total", 1)
	e.obs.LogInfo("action_executed",
		ports.Field{Key: "machine", Value: decision.MachineID},
		ports.Field{Key: "action", Value: decision.Action.String()},
		ports.Field{Key: "classification", Value: decision.Classification.String()})
	return &domain.ActionRecord{
		MachineID: decision.MachineID,
		Timestamp: e.now(),
		Action:    decision.Action,
		Outcome:   domain.OutcomeSuccess,
		Attempts:  attempts,
		Detail:    decision.Classification.String() + " risk",
	}
}

func (e *ActionExecutor) publishRecord(ctx context.Context, record *domain.ActionRecord) {
	priority := domain.PriorityNormal
	if record.Action == domain.ActionShutdown && record.Outcome == domain.OutcomeSuccess {
		priority = domain.PriorityHigh
	}
	topic := bus.ActionTopic(e.cfg.Namespace, record.MachineID)
	_ = publishEnvelope(ctx, e.bus, e.obs, e.cfg.AgentID,
		domain.KindAction, topic, priority, record)

	if e.sink != nil {
		if err := e.sink.RecordActions([]*domain.ActionRecord{record}); err != nil {
			e.obs.LogWarn("history_sink_action_failed",
				ports.Field{Key: "sink", Value: e.sink.Name()},
				ports.Field{Key: "error", Value: err})
		}
	}
}

func (e *ActionExecutor) rejectSchema(topic string, err error) {
	e.obs.IncCounter("factory_schema_rejections_total", 1)
	e.obs.LogWarn("schema_rejected",
		ports.Field{Key: "topic", Value: topic},
		ports.Field{Key: "error", Value: err})
}
