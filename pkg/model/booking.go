package model

import (
	"time"
)

type Booking struct {
	ID         string         `json:"id" bson:"_id"`
	TenantID   string         `json:"tenant_id" bson:"tenant_id"`
	CustomerID string         `json:"customer_id" bson:"customer_id"`
	Code       string         `json:"code" bson:"code"`
	Status     BookingStatus  `json:"status" bson:"status"`
	TripIDs    []string       `json:"trip_ids" bson:"trip_ids"`
	Notes      string         `json:"notes,omitempty" bson:"notes,omitempty"`
	Totals     BookingTotals  `json:"totals" bson:"totals"`
	History    []StatusChange `json:"history,omitempty" bson:"history,omitempty"`
	CreatedBy  string         `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" bson:"updated_at"`
}

// BookingTotals is the snapshot written by each reconciliation. It is a cache
// for listings; the ledger always recomputes from charge and payment rows.
type BookingTotals struct {
	Subtotal          int64     `json:"subtotal" bson:"subtotal"`
	Discount          int64     `json:"discount" bson:"discount"`
	GrandTotal        int64     `json:"grand_total" bson:"grand_total"`
	TotalPayments     int64     `json:"total_payments" bson:"total_payments"`
	Outstanding       int64     `json:"outstanding" bson:"outstanding"`
	PaymentPercentage float64   `json:"payment_percentage" bson:"payment_percentage"`
	ComputedAt        time.Time `json:"computed_at,omitempty" bson:"computed_at,omitempty"`
}

func (t BookingTotals) Settled() bool {
	return t.Outstanding <= 0
}

func (t BookingTotals) Overpaid() bool {
	return t.Outstanding < 0
}

type StatusChange struct {
	From BookingStatus `json:"from" bson:"from"`
	To   BookingStatus `json:"to" bson:"to"`
	By   string        `json:"by,omitempty" bson:"by,omitempty"`
	At   time.Time     `json:"at" bson:"at"`
}

type BookingCreate struct {
	CustomerID string      `json:"customer_id" validate:"required,uuid4"`
	Notes      string      `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Trips      []TripInput `json:"trips" validate:"required,min=1,max=50,dive"`
}

type BookingDetail struct {
	Booking    *Booking        `json:"booking"`
	Trips      []*Trip         `json:"trips"`
	NextStates []BookingStatus `json:"next_states"`
}

type BookingFilter struct {
	Status     BookingStatus
	CustomerID string
	Limit      int
	Offset     int64
}

type TransitionRequest struct {
	Target BookingStatus `json:"target" validate:"required,booking_status"`
}

type BookingTransitions struct {
	Status     BookingStatus   `json:"status"`
	NextStates []BookingStatus `json:"next_states"`
	History    []StatusChange  `json:"history"`
}
