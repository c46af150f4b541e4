package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestBookingStatus_Sets(t *testing.T) {
	tests := []struct {
		status          BookingStatus
		committed       bool
		assignable      bool
		acceptsPayments bool
		chargesEditable bool
	}{
		{StatusDraft, false, false, false, true},
		{StatusQuotationSent, false, false, true, true},
		{StatusPaymentReceived, true, true, true, true},
		{StatusPaidInFull, true, true, true, false},
		{StatusCompleted, true, false, true, false},
		{StatusCancelled, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if !tt.status.Valid() {
				t.Fatalf("%s should be valid", tt.status)
			}
			if got := tt.status.Committed(); got != tt.committed {
				t.Errorf("Committed() = %v, want %v", got, tt.committed)
			}
			if got := tt.status.Assignable(); got != tt.assignable {
				t.Errorf("Assignable() = %v, want %v", got, tt.assignable)
			}
			if got := tt.status.AcceptsPayments(); got != tt.acceptsPayments {
				t.Errorf("AcceptsPayments() = %v, want %v", got, tt.acceptsPayments)
			}
			if got := tt.status.ChargesEditable(); got != tt.chargesEditable {
				t.Errorf("ChargesEditable() = %v, want %v", got, tt.chargesEditable)
			}
		})
	}

	if BookingStatus("LUNAS").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestVehicleCategory_Rank(t *testing.T) {
	if CategoryBigBus.Rank() >= CategoryMediumBus.Rank() {
		t.Error("BIG_BUS should rank before MEDIUM_BUS")
	}
	if CategoryElf.Rank() >= CategoryMPV.Rank() {
		t.Error("ELF should rank before MPV")
	}
	unknown := VehicleCategory("TRUCK")
	if unknown.Valid() {
		t.Error("TRUCK should not be a valid category")
	}
	if unknown.Rank() != len(VehicleCategories) {
		t.Errorf("unknown rank = %d, want %d", unknown.Rank(), len(VehicleCategories))
	}
}

func TestWindowsOverlap(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2025, 3, d, h, 0, 0, 0, time.UTC) }

	tests := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"disjoint before", day(1, 8), day(3, 8), day(10, 8), day(12, 8), false},
		{"partial overlap", day(1, 8), day(3, 8), day(2, 8), day(4, 8), true},
		{"contained", day(1, 8), day(5, 8), day(2, 8), day(3, 8), true},
		{"touching endpoints overlap", day(1, 8), day(3, 10), day(3, 10), day(4, 8), true},
		{"one hour apart", day(1, 8), day(3, 10), day(3, 11), day(4, 8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WindowsOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("WindowsOverlap() = %v, want %v", got, tt.want)
			}
			if got := WindowsOverlap(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Errorf("WindowsOverlap() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCharge_ComputeTotal(t *testing.T) {
	c := &Charge{Quantity: 2, UnitPrice: 5_000_000, Total: 1}
	if err := c.ComputeTotal(); err != nil {
		t.Fatalf("ComputeTotal() error = %v", err)
	}
	if c.Total != 10_000_000 {
		t.Errorf("Total = %d, want 10000000", c.Total)
	}

	huge := &Charge{Quantity: 2, UnitPrice: 5_000_000_000_000_000_000, Total: 7}
	if err := huge.ComputeTotal(); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("ComputeTotal() error = %v, want ErrAmountOverflow", err)
	}
	if huge.Total != 7 {
		t.Errorf("Total changed to %d on overflow", huge.Total)
	}

	limit := &Charge{Quantity: MaxChargeQuantity, UnitPrice: MaxAmount}
	if err := limit.ComputeTotal(); err != nil {
		t.Fatalf("ComputeTotal() at input ceilings error = %v", err)
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(a, b int64) (int64, error)
		a, b    int64
		want    int64
		wantErr bool
	}{
		{"add", AddAmount, 40, 2, 42, false},
		{"add negative", AddAmount, 40, -50, -10, false},
		{"add past max", AddAmount, math.MaxInt64, 1, 0, true},
		{"add past min", AddAmount, math.MinInt64, -1, 0, true},
		{"mul", MulAmount, 3, 75_000, 225_000, false},
		{"mul zero", MulAmount, 0, math.MaxInt64, 0, false},
		{"mul past max", MulAmount, 2, 5_000_000_000_000_000_000, 0, true},
		{"mul negative past min", MulAmount, -3, math.MaxInt64 / 2, 0, true},
		{"mul min by minus one", MulAmount, math.MinInt64, -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.a, tt.b)
			if tt.wantErr {
				if !errors.Is(err, ErrAmountOverflow) {
					t.Fatalf("error = %v, want ErrAmountOverflow", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("got (%d, %v), want %d", got, err, tt.want)
			}
		})
	}
}

func TestAssignment_Distance(t *testing.T) {
	start, end := 120500, 121030
	a := &Assignment{StartKm: &start}
	if _, ok := a.Distance(); ok {
		t.Fatal("distance should be unknown without end km")
	}
	a.EndKm = &end
	d, ok := a.Distance()
	if !ok || d != 530 {
		t.Errorf("Distance() = %d, %v; want 530, true", d, ok)
	}
}

func TestAssignment_UsesDriver(t *testing.T) {
	a := &Assignment{DriverID: "d1", CoDriverID: "d2"}
	if !a.UsesDriver("d1") || !a.UsesDriver("d2") {
		t.Error("driver and co-driver should both count")
	}
	if a.UsesDriver("") || a.UsesDriver("d3") {
		t.Error("unrelated or empty driver should not count")
	}
}

func TestNewBufferWarning(t *testing.T) {
	w := NewBufferWarning(WarningBufferBefore, 2*time.Hour, 4*time.Hour, "trip-a")
	if w.GapMinutes != 120 || w.MinimumMinutes != 240 {
		t.Errorf("minutes = %d/%d, want 120/240", w.GapMinutes, w.MinimumMinutes)
	}
	if w.Message != "gap to previous trip is only 2h (minimum 4h)" {
		t.Errorf("Message = %q", w.Message)
	}

	w = NewBufferWarning(WarningBufferAfter, 90*time.Minute, 4*time.Hour, "trip-b")
	if w.Message != "gap to next trip is only 1h30m (minimum 4h)" {
		t.Errorf("Message = %q", w.Message)
	}
}

func TestBookingTotals(t *testing.T) {
	if !(BookingTotals{Outstanding: 0}).Settled() {
		t.Error("zero outstanding should be settled")
	}
	over := BookingTotals{Outstanding: -500}
	if !over.Settled() || !over.Overpaid() {
		t.Error("negative outstanding should be settled and overpaid")
	}
	if (BookingTotals{Outstanding: 1}).Settled() {
		t.Error("positive outstanding should not be settled")
	}
}
