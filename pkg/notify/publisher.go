package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"buscharter/pkg/kafka"
	"buscharter/pkg/logger"
	"buscharter/pkg/tenant"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Publisher delivers events. Callers publish only after commit and treat a
// returned error as loggable, never as a reason to undo state.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

func newEnvelope(ctx context.Context, ev Event, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	scope, _ := tenant.FromContext(ctx)
	return Envelope{
		Type:       ev.Type(),
		TenantID:   scope.TenantID,
		ActorID:    scope.ActorID,
		OccurredAt: now.UTC(),
		Payload:    payload,
	}, nil
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
	source   string
	now      func() time.Time
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return newKafkaPublisher(producer, source)
}

func newKafkaPublisher(producer messagePublisher, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	env, err := newEnvelope(ctx, ev, p.now())
	if err != nil {
		return err
	}

	msg, err := kafka.NewMessage().
		WithKey(ev.Key()).
		WithValue(env).
		WithEventType(string(ev.Type())).
		WithTenantID(env.TenantID).
		WithCorrelationID(logger.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithTimestamp(env.OccurredAt).
		Build()
	if err != nil {
		return err
	}

	return p.producer.Publish(ctx, msg)
}

// LogPublisher writes events to the service log. It is the default when Kafka
// is disabled.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	env, err := newEnvelope(ctx, ev, time.Now())
	if err != nil {
		return err
	}
	p.log.WithScope(ctx).Info("Domain event",
		"event_type", env.Type,
		"key", ev.Key(),
		"payload", string(env.Payload),
	)
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type() == t {
			out = append(out, ev)
		}
	}
	return out
}

// Emit publishes each event and logs failures. It never returns an error.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, events ...Event) {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			log.WithScope(ctx).Error("Failed to publish event",
				"event_type", ev.Type(),
				"key", ev.Key(),
				"error", err,
			)
		}
	}
}
