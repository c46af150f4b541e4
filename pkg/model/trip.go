package model

import "time"

type Trip struct {
	ID                string          `json:"id" bson:"_id"`
	TenantID          string          `json:"tenant_id" bson:"tenant_id"`
	BookingID         string          `json:"booking_id" bson:"booking_id"`
	StartTime         time.Time       `json:"start_time" bson:"start_time"`
	EndTime           time.Time       `json:"end_time" bson:"end_time"`
	Pickup            string          `json:"pickup" bson:"pickup"`
	Destination       string          `json:"destination" bson:"destination"`
	RequestedCategory VehicleCategory `json:"requested_category,omitempty" bson:"requested_category,omitempty"`
	Passengers        int             `json:"passengers,omitempty" bson:"passengers,omitempty"`
	CreatedAt         time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" bson:"updated_at"`
}

type TripInput struct {
	StartTime         time.Time       `json:"start_time" validate:"required"`
	EndTime           time.Time       `json:"end_time" validate:"required,gtfield=StartTime"`
	Pickup            string          `json:"pickup" validate:"required,min=2,max=200"`
	Destination       string          `json:"destination" validate:"required,min=2,max=200"`
	RequestedCategory VehicleCategory `json:"requested_category,omitempty" validate:"omitempty,vehicle_category"`
	Passengers        int             `json:"passengers,omitempty" validate:"omitempty,min=1,max=1000"`
}

type TripUpdate struct {
	StartTime         *time.Time       `json:"start_time,omitempty"`
	EndTime           *time.Time       `json:"end_time,omitempty"`
	Pickup            *string          `json:"pickup,omitempty" validate:"omitempty,min=2,max=200"`
	Destination       *string          `json:"destination,omitempty" validate:"omitempty,min=2,max=200"`
	RequestedCategory *VehicleCategory `json:"requested_category,omitempty" validate:"omitempty,vehicle_category"`
	Passengers        *int             `json:"passengers,omitempty" validate:"omitempty,min=1,max=1000"`
}

func (u TripUpdate) ChangesWindow() bool {
	return u.StartTime != nil || u.EndTime != nil
}

// WindowsOverlap treats both windows as closed intervals: touching endpoints overlap.
func WindowsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
