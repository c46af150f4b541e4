package model

type BookingStatus string

const (
	StatusDraft           BookingStatus = "DRAFT"
	StatusQuotationSent   BookingStatus = "QUOTATION_SENT"
	StatusPaymentReceived BookingStatus = "PAYMENT_RECEIVED"
	StatusPaidInFull      BookingStatus = "PAID_IN_FULL"
	StatusCompleted       BookingStatus = "COMPLETED"
	StatusCancelled       BookingStatus = "CANCELLED"
)

var AllBookingStatuses = []BookingStatus{
	StatusDraft,
	StatusQuotationSent,
	StatusPaymentReceived,
	StatusPaidInFull,
	StatusCompleted,
	StatusCancelled,
}

// CommittedStatuses are the booking statuses whose assignments reserve a vehicle.
var CommittedStatuses = []BookingStatus{StatusPaymentReceived, StatusPaidInFull, StatusCompleted}

// AssignableStatuses are the booking statuses that accept new assignments.
var AssignableStatuses = []BookingStatus{StatusPaymentReceived, StatusPaidInFull}

func (s BookingStatus) Valid() bool {
	for _, st := range AllBookingStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s BookingStatus) Committed() bool {
	return containsStatus(CommittedStatuses, s)
}

func (s BookingStatus) Assignable() bool {
	return containsStatus(AssignableStatuses, s)
}

// AcceptsPayments is false for bookings that were never quoted or were cancelled.
func (s BookingStatus) AcceptsPayments() bool {
	return s != StatusDraft && s != StatusCancelled
}

func (s BookingStatus) ChargesEditable() bool {
	return s == StatusDraft || s == StatusQuotationSent || s == StatusPaymentReceived
}

func containsStatus(set []BookingStatus, s BookingStatus) bool {
	for _, st := range set {
		if st == s {
			return true
		}
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentScheduled  AssignmentStatus = "SCHEDULED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentCancelled  AssignmentStatus = "CANCELLED"
)

type ChargeKind string

const (
	ChargePrimary    ChargeKind = "PRIMARY"
	ChargeAdditional ChargeKind = "ADDITIONAL"
	ChargeDiscount   ChargeKind = "DISCOUNT"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentQRIS     PaymentMethod = "QRIS"
	PaymentOther    PaymentMethod = "OTHER"
)

type VehicleCategory string

const (
	CategoryBigBus    VehicleCategory = "BIG_BUS"
	CategoryMediumBus VehicleCategory = "MEDIUM_BUS"
	CategoryHiace     VehicleCategory = "HIACE"
	CategoryElf       VehicleCategory = "ELF"
	CategoryMPV       VehicleCategory = "MPV"
)

// VehicleCategories is in display order.
var VehicleCategories = []VehicleCategory{
	CategoryBigBus,
	CategoryMediumBus,
	CategoryHiace,
	CategoryElf,
	CategoryMPV,
}

// Rank orders categories for listings. Unknown categories sort last.
func (c VehicleCategory) Rank() int {
	for i, cat := range VehicleCategories {
		if cat == c {
			return i
		}
	}
	return len(VehicleCategories)
}

func (c VehicleCategory) Valid() bool {
	return c.Rank() < len(VehicleCategories)
}

type Ownership string

const (
	OwnershipOwned   Ownership = "OWNED"
	OwnershipPartner Ownership = "PARTNER"
)

type CustomerKind string

const (
	CustomerCorporate  CustomerKind = "CORPORATE"
	CustomerSchool     CustomerKind = "SCHOOL"
	CustomerIndividual CustomerKind = "INDIVIDUAL"
	CustomerAgent      CustomerKind = "AGENT"
)
