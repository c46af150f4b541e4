package notify

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventBookingConfirmed EventType = "BookingConfirmed"
	EventPaymentReceived  EventType = "PaymentReceived"
	EventVehicleAssigned  EventType = "VehicleAssigned"
)

const SchemaVersion = "1"

// Event is a domain fact published after its transaction committed.
type Event interface {
	Type() EventType
	// Key orders events of one booking on one partition.
	Key() string
}

type BookingConfirmed struct {
	BookingID  string `json:"booking_id"`
	Code       string `json:"code"`
	CustomerID string `json:"customer_id"`
	TripCount  int    `json:"trip_count"`
}

func (BookingConfirmed) Type() EventType { return EventBookingConfirmed }
func (e BookingConfirmed) Key() string   { return e.BookingID }

type PaymentReceived struct {
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

func (PaymentReceived) Type() EventType { return EventPaymentReceived }
func (e PaymentReceived) Key() string   { return e.BookingID }

type VehicleAssigned struct {
	AssignmentID string `json:"assignment_id"`
	BookingID    string `json:"booking_id"`
	TripID       string `json:"trip_id"`
	VehicleID    string `json:"vehicle_id"`
	DriverID     string `json:"driver_id,omitempty"`
}

func (VehicleAssigned) Type() EventType { return EventVehicleAssigned }
func (e VehicleAssigned) Key() string   { return e.BookingID }

// Envelope is the wire form of every event.
type Envelope struct {
	Type       EventType       `json:"type"`
	TenantID   string          `json:"tenant_id"`
	ActorID    string          `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into the concrete event for its type.
func (e Envelope) Decode() (Event, error) {
	var ev Event
	switch e.Type {
	case EventBookingConfirmed:
		var v BookingConfirmed
		if err := json.Unmarshal(e.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventPaymentReceived:
		var v PaymentReceived
		if err := json.Unmarshal(e.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventVehicleAssigned:
		var v VehicleAssigned
		if err := json.Unmarshal(e.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	default:
		return nil, ErrUnknownEvent
	}
	return ev, nil
}
