package model

import (
	"errors"
	"math"
	"time"
)

// Input ceilings. A charge at both limits stays far inside int64.
const (
	MaxChargeQuantity = 100_000
	MaxAmount         = 1_000_000_000_000
)

var ErrAmountOverflow = errors.New("amount exceeds the int64 range")

type Charge struct {
	ID          string     `json:"id" bson:"_id"`
	TenantID    string     `json:"tenant_id" bson:"tenant_id"`
	BookingID   string     `json:"booking_id" bson:"booking_id"`
	Kind        ChargeKind `json:"kind" bson:"kind"`
	Description string     `json:"description" bson:"description"`
	Quantity    int64      `json:"quantity" bson:"quantity"`
	UnitPrice   int64      `json:"unit_price" bson:"unit_price"`
	Total       int64      `json:"total" bson:"total"`
	CreatedBy   string     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// ComputeTotal derives Total from quantity and unit price. Total is never taken
// from input. Total is left unchanged when the product overflows.
func (c *Charge) ComputeTotal() error {
	total, err := MulAmount(c.Quantity, c.UnitPrice)
	if err != nil {
		return err
	}
	c.Total = total
	return nil
}

// AddAmount returns a+b or ErrAmountOverflow.
func AddAmount(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}

// MulAmount returns a*b or ErrAmountOverflow.
func MulAmount(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, ErrAmountOverflow
	}
	product := a * b
	if product/b != a {
		return 0, ErrAmountOverflow
	}
	return product, nil
}

type ChargeInput struct {
	Kind        ChargeKind `json:"kind" validate:"required,oneof=PRIMARY ADDITIONAL DISCOUNT"`
	Description string     `json:"description" validate:"required,min=1,max=255"`
	Quantity    int64      `json:"quantity" validate:"gt=0,max=100000"`
	UnitPrice   int64      `json:"unit_price" validate:"gte=0,max=1000000000000"`
}

type Payment struct {
	ID         string        `json:"id" bson:"_id"`
	TenantID   string        `json:"tenant_id" bson:"tenant_id"`
	BookingID  string        `json:"booking_id" bson:"booking_id"`
	Amount     int64         `json:"amount" bson:"amount"`
	Method     PaymentMethod `json:"method" bson:"method"`
	Reference  string        `json:"reference,omitempty" bson:"reference,omitempty"`
	PaidAt     time.Time     `json:"paid_at" bson:"paid_at"`
	RecordedBy string        `json:"recorded_by,omitempty" bson:"recorded_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
}

type PaymentInput struct {
	Amount    int64         `json:"amount" validate:"gt=0,max=1000000000000"`
	Method    PaymentMethod `json:"method" validate:"required,oneof=CASH TRANSFER QRIS OTHER"`
	Reference string        `json:"reference,omitempty" validate:"omitempty,max=100"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
}

type PaymentResult struct {
	Payment *Payment       `json:"payment"`
	Booking *Booking       `json:"booking"`
	Totals  BookingTotals  `json:"totals"`
	Changes []StatusChange `json:"status_changes,omitempty"`
}
