package lifecycle

import "buscharter/pkg/model"

type edge struct {
	from    model.BookingStatus
	targets []model.BookingStatus
}

// transitions is the only definition of the booking state machine. Targets are
// listed in the order ValidTargets reports them.
var transitions = []edge{
	{model.StatusDraft, []model.BookingStatus{model.StatusQuotationSent}},
	{model.StatusQuotationSent, []model.BookingStatus{model.StatusPaymentReceived, model.StatusCancelled}},
	{model.StatusPaymentReceived, []model.BookingStatus{model.StatusPaidInFull, model.StatusCancelled}},
	{model.StatusPaidInFull, []model.BookingStatus{model.StatusCompleted}},
	{model.StatusCompleted, nil},
	{model.StatusCancelled, nil},
}

func CanTransition(from, to model.BookingStatus) bool {
	for _, target := range targetsOf(from) {
		if target == to {
			return true
		}
	}
	return false
}

// ValidTargets returns a fresh slice; callers may keep or modify it.
func ValidTargets(from model.BookingStatus) []model.BookingStatus {
	targets := targetsOf(from)
	out := make([]model.BookingStatus, len(targets))
	copy(out, targets)
	return out
}

func targetsOf(from model.BookingStatus) []model.BookingStatus {
	for _, e := range transitions {
		if e.from == from {
			return e.targets
		}
	}
	return nil
}

func statusStrings(in []model.BookingStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
