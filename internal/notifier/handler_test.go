package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"buscharter/pkg/kafka"
	"buscharter/pkg/logger"
	"buscharter/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	envs   []notify.Envelope
	events []notify.Event
	err    error
}

func (s *recordingSink) Deliver(_ context.Context, env notify.Envelope, ev notify.Event) error {
	if s.err != nil {
		return s.err
	}
	s.envs = append(s.envs, env)
	s.events = append(s.events, ev)
	return nil
}

func envelopeMessage(t *testing.T, env notify.Envelope) kafka.Message {
	t.Helper()
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Key: "b-1", Value: value}
}

func TestHandler_DecodesEvent(t *testing.T) {
	sink := &recordingSink{}
	payload, err := json.Marshal(notify.PaymentReceived{PaymentID: "p-1", BookingID: "b-1", Amount: 5_000_000, Method: "TRANSFER"})
	require.NoError(t, err)

	msg := envelopeMessage(t, notify.Envelope{
		Type:       notify.EventPaymentReceived,
		TenantID:   "po-sinar",
		OccurredAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Payload:    payload,
	})

	require.NoError(t, Handler(sink)(context.Background(), msg))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "po-sinar", sink.envs[0].TenantID)
	assert.Equal(t, notify.PaymentReceived{PaymentID: "p-1", BookingID: "b-1", Amount: 5_000_000, Method: "TRANSFER"}, sink.events[0])
}

func TestHandler_PermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		msg  kafka.Message
	}{
		{"not json", kafka.Message{Value: []byte("{")}},
		{"no tenant", envelopeMessage(t, notify.Envelope{Type: notify.EventBookingConfirmed, Payload: json.RawMessage(`{}`)})},
		{"unknown type", envelopeMessage(t, notify.Envelope{Type: "TripDeleted", TenantID: "po-sinar", Payload: json.RawMessage(`{}`)})},
		{"bad payload", envelopeMessage(t, notify.Envelope{Type: notify.EventVehicleAssigned, TenantID: "po-sinar", Payload: json.RawMessage(`[]`)})},
		{"future schema", withSchema(envelopeMessage(t, notify.Envelope{Type: notify.EventBookingConfirmed, TenantID: "po-sinar", Payload: json.RawMessage(`{}`)}), "2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			err := Handler(sink)(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
			assert.False(t, kafka.ShouldRetry(err, 0, 3))
			assert.Empty(t, sink.events)
		})
	}
}

func withSchema(msg kafka.Message, version string) kafka.Message {
	msg.Headers = map[string]string{kafka.HeaderSchemaVersion: version}
	return msg
}

func TestHandler_AcceptsCurrentSchema(t *testing.T) {
	sink := &recordingSink{}
	msg := withSchema(envelopeMessage(t, notify.Envelope{
		Type:     notify.EventBookingConfirmed,
		TenantID: "po-sinar",
		Payload:  json.RawMessage(`{"booking_id":"b-1","code":"BK/1","customer_id":"c-1","trip_count":2}`),
	}), notify.SchemaVersion)

	require.NoError(t, Handler(sink)(context.Background(), msg))
	assert.Len(t, sink.events, 1)
}

func TestHandler_SinkFailureIsRetried(t *testing.T) {
	sink := &recordingSink{err: errors.New("smtp relay down")}
	msg := envelopeMessage(t, notify.Envelope{
		Type:     notify.EventBookingConfirmed,
		TenantID: "po-sinar",
		Payload:  json.RawMessage(`{}`),
	})

	err := Handler(sink)(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
	assert.True(t, kafka.ShouldRetry(err, 0, 3))
	assert.ErrorContains(t, err, "smtp relay down")
}

func TestLogSink_WritesEventFields(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(logger.New(logger.Config{Level: "info", Output: &buf, Service: "test"}))

	ev := notify.VehicleAssigned{AssignmentID: "a-1", BookingID: "b-1", TripID: "t-1", VehicleID: "v-1"}
	require.NoError(t, sink.Deliver(context.Background(), notify.Envelope{Type: notify.EventVehicleAssigned, TenantID: "po-sinar"}, ev))

	out := buf.String()
	assert.Contains(t, out, "Notification received")
	assert.Contains(t, out, `"assignment_id":"a-1"`)
	assert.Contains(t, out, `"tenant_id":"po-sinar"`)
}
