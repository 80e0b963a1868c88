package subscription

import (
	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/common/validation"
)

const maxMonths = 36

// MonthsDTO is the body of renew and extend requests. Months defaults to 1.
type MonthsDTO struct {
	Months int `json:"months"`
}

func (d *MonthsDTO) Validate() *errors.AppError {
	if d.Months == 0 {
		d.Months = 1
	}
	v := validation.NewValidator()
	v.Field("months", int64(d.Months)).
		MinInt(1, errors.ErrCodeValidationFailed).
		MaxInt(maxMonths, errors.ErrCodeValidationFailed)
	return v.Validate()
}

// ActivateDTO lets an admin grant a subscription without payment.
type ActivateDTO struct {
	UserID int64 `json:"user_id"`
	Months int   `json:"months"`
}

func (d *ActivateDTO) Validate() *errors.AppError {
	if d.Months == 0 {
		d.Months = 1
	}
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("months", int64(d.Months)).
		MinInt(1, errors.ErrCodeValidationFailed).
		MaxInt(maxMonths, errors.ErrCodeValidationFailed)
	return v.Validate()
}
