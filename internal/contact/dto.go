package contact

import (
	"strings"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/common/validation"
)

type CreateDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (d *CreateDTO) Validate() *errors.AppError {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Subject = strings.TrimSpace(d.Subject)
	d.Message = strings.TrimSpace(d.Message)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("email", d.Email).Required().Email()
	v.Field("subject", d.Subject).Required().MaxLength(255)
	v.Field("message", d.Message).Required().MaxLength(10000)
	return v.Validate()
}

type StatusDTO struct {
	Status string `json:"status"`
}

func (d *StatusDTO) Validate() *errors.AppError {
	d.Status = strings.ToLower(strings.TrimSpace(d.Status))

	v := validation.NewValidator()
	v.Field("status", d.Status).Required().OneOf(Statuses, errors.ErrCodeValidationFailed)
	return v.Validate()
}

// ValidateStatusFilter accepts an empty filter or one of Statuses.
func ValidateStatusFilter(status string) *errors.AppError {
	if status == "" {
		return nil
	}
	v := validation.NewValidator()
	v.Field("status", status).OneOf(Statuses, errors.ErrCodeValidationFailed)
	return v.Validate()
}
