package notifier

import (
	"context"
	"errors"
	"fmt"

	"buscharter/pkg/kafka"
	"buscharter/pkg/logger"
	"buscharter/pkg/notify"
)

// Sink receives decoded events. The default sink only logs them.
type Sink interface {
	Deliver(ctx context.Context, env notify.Envelope, ev notify.Event) error
}

type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, env notify.Envelope, ev notify.Event) error {
	args := []any{"event_type", env.Type, "tenant_id", env.TenantID, "booking_id", ev.Key(), "occurred_at", env.OccurredAt}
	switch e := ev.(type) {
	case notify.BookingConfirmed:
		args = append(args, "code", e.Code, "trip_count", e.TripCount)
	case notify.PaymentReceived:
		args = append(args, "payment_id", e.PaymentID, "amount", e.Amount, "method", e.Method)
	case notify.VehicleAssigned:
		args = append(args, "assignment_id", e.AssignmentID, "vehicle_id", e.VehicleID, "trip_id", e.TripID)
	}
	s.log.Info("Notification received", args...)
	return nil
}

// Handler decodes notification envelopes. Malformed or unknown messages are
// permanent failures so the consumer parks them on the dead letter topic. Sink
// failures are retried.
func Handler(sink Sink) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if v, ok := msg.GetHeader(kafka.HeaderSchemaVersion); ok && v != notify.SchemaVersion {
			return kafka.NewPermanentError("unsupported notification schema", fmt.Errorf("schema version %q", v))
		}

		var env notify.Envelope
		if err := msg.DecodeValue(&env); err != nil {
			return kafka.NewPermanentError("malformed notification envelope", err)
		}
		if env.TenantID == "" {
			return kafka.NewPermanentError("notification without tenant", errors.New("empty tenant_id"))
		}

		ev, err := env.Decode()
		if err != nil {
			return kafka.NewPermanentError("undecodable notification payload", err)
		}
		if err := sink.Deliver(ctx, env, ev); err != nil {
			return kafka.NewTransientError("notification delivery failed", err)
		}
		return nil
	}
}
