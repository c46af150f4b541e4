package model

import (
	"fmt"
	"time"
)

type Vehicle struct {
	ID           string          `json:"id" bson:"_id"`
	TenantID     string          `json:"tenant_id" bson:"tenant_id"`
	PlateNumber  string          `json:"plate_number" bson:"plate_number" validate:"required,min=3,max=15"`
	DisplayName  string          `json:"display_name" bson:"display_name" validate:"required,min=1,max=60"`
	Category     VehicleCategory `json:"category" bson:"category" validate:"required,vehicle_category"`
	SeatCapacity int             `json:"seat_capacity" bson:"seat_capacity" validate:"required,min=1,max=100"`
	Ownership    Ownership       `json:"ownership" bson:"ownership" validate:"required,oneof=OWNED PARTNER"`
	VendorName   string          `json:"vendor_name,omitempty" bson:"vendor_name,omitempty" validate:"required_if=Ownership PARTNER,max=100"`
	Active       bool            `json:"active" bson:"active"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
}

type VehicleUpdate struct {
	PlateNumber  *string          `json:"plate_number,omitempty" validate:"omitempty,min=3,max=15"`
	DisplayName  *string          `json:"display_name,omitempty" validate:"omitempty,min=1,max=60"`
	Category     *VehicleCategory `json:"category,omitempty" validate:"omitempty,vehicle_category"`
	SeatCapacity *int             `json:"seat_capacity,omitempty" validate:"omitempty,min=1,max=100"`
	Ownership    *Ownership       `json:"ownership,omitempty" validate:"omitempty,oneof=OWNED PARTNER"`
	VendorName   *string          `json:"vendor_name,omitempty" validate:"omitempty,max=100"`
}

type VehicleFilter struct {
	Category   VehicleCategory
	ActiveOnly bool
}

type Driver struct {
	ID            string    `json:"id" bson:"_id"`
	TenantID      string    `json:"tenant_id" bson:"tenant_id"`
	FullName      string    `json:"full_name" bson:"full_name" validate:"required,min=2,max=100"`
	Nickname      string    `json:"nickname,omitempty" bson:"nickname,omitempty" validate:"omitempty,max=50"`
	Phone         string    `json:"phone" bson:"phone" validate:"required,e164"`
	LicenseNumber string    `json:"license_number" bson:"license_number" validate:"required,min=4,max=50"`
	LicenseExpiry time.Time `json:"license_expiry" bson:"license_expiry" validate:"required"`
	Active        bool      `json:"active" bson:"active"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

func (d *Driver) LicenseValidThrough(t time.Time) bool {
	return !d.LicenseExpiry.Before(t)
}

type Assignment struct {
	ID            string           `json:"id" bson:"_id"`
	TenantID      string           `json:"tenant_id" bson:"tenant_id"`
	TripID        string           `json:"trip_id" bson:"trip_id"`
	BookingID     string           `json:"booking_id" bson:"booking_id"`
	VehicleID     string           `json:"vehicle_id" bson:"vehicle_id"`
	DriverID      string           `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	CoDriverID    string           `json:"co_driver_id,omitempty" bson:"co_driver_id,omitempty"`
	Status        AssignmentStatus `json:"status" bson:"status"`
	Live          bool             `json:"-" bson:"live"`
	TripStart     time.Time        `json:"trip_start" bson:"trip_start"`
	TripEnd       time.Time        `json:"trip_end" bson:"trip_end"`
	BookingStatus BookingStatus    `json:"booking_status" bson:"booking_status"`
	StartKm       *int             `json:"start_km,omitempty" bson:"start_km,omitempty"`
	EndKm         *int             `json:"end_km,omitempty" bson:"end_km,omitempty"`
	CreatedBy     string           `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" bson:"updated_at"`
}

// Distance is the odometer difference once both readings exist.
func (a *Assignment) Distance() (int, bool) {
	if a.StartKm == nil || a.EndKm == nil {
		return 0, false
	}
	return *a.EndKm - *a.StartKm, true
}

func (a *Assignment) UsesDriver(driverID string) bool {
	return driverID != "" && (a.DriverID == driverID || a.CoDriverID == driverID)
}

type AssignRequest struct {
	TripID     string `json:"trip_id" validate:"required,uuid4"`
	VehicleID  string `json:"vehicle_id" validate:"required,uuid4"`
	DriverID   string `json:"driver_id,omitempty" validate:"omitempty,uuid4"`
	CoDriverID string `json:"co_driver_id,omitempty" validate:"omitempty,uuid4,nefield=DriverID"`
}

type WarningKind string

const (
	WarningBufferBefore  WarningKind = "BUFFER_BEFORE"
	WarningBufferAfter   WarningKind = "BUFFER_AFTER"
	WarningDriverOverlap WarningKind = "DRIVER_OVERLAP"
)

// Warning is advisory: the assignment it accompanies was still created.
type Warning struct {
	Kind           WarningKind   `json:"kind"`
	Gap            time.Duration `json:"-"`
	Minimum        time.Duration `json:"-"`
	GapMinutes     int64         `json:"gap_minutes"`
	MinimumMinutes int64         `json:"minimum_minutes"`
	NeighborTripID string        `json:"neighbor_trip_id,omitempty"`
	Message        string        `json:"message"`
}

func NewBufferWarning(kind WarningKind, gap, minimum time.Duration, neighborTripID string) Warning {
	side := "previous"
	if kind == WarningBufferAfter {
		side = "next"
	}
	return Warning{
		Kind:           kind,
		Gap:            gap,
		Minimum:        minimum,
		GapMinutes:     int64(gap / time.Minute),
		MinimumMinutes: int64(minimum / time.Minute),
		NeighborTripID: neighborTripID,
		Message:        fmt.Sprintf("gap to %s trip is only %s (minimum %s)", side, formatGap(gap), formatGap(minimum)),
	}
}

func formatGap(d time.Duration) string {
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

type AssignResult struct {
	Assignment *Assignment `json:"assignment"`
	Warnings   []Warning   `json:"warnings"`
}

type VehicleLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
