package validator

import (
	"time"

	"buscharter/pkg/logger"
	"buscharter/pkg/model"
	"buscharter/pkg/validator"
)

type FinanceValidator struct {
	*validator.Validator
}

func NewFinanceValidator(log *logger.Logger) *FinanceValidator {
	v := &FinanceValidator{Validator: validator.New(log)}
	log.Info("Finance validator initialized successfully")
	return v
}

func (v *FinanceValidator) ValidateCharge(in *model.ChargeInput) error {
	return v.Struct(in)
}

// ValidatePayment also rejects a paid_at later than now.
func (v *FinanceValidator) ValidatePayment(in *model.PaymentInput, now time.Time) error {
	if err := v.Struct(in); err != nil {
		return err
	}
	if in.PaidAt != nil && in.PaidAt.After(now) {
		return validator.Field("paid_at", "paid_at cannot be in the future")
	}
	return nil
}
