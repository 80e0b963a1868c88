package user

import (
	"strings"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/common/validation"
)

// ProfileUpdateDTO is what users may change about themselves.
type ProfileUpdateDTO struct {
	Name          *string `json:"name"`
	ContactNumber *string `json:"contact_number"`
}

func (d *ProfileUpdateDTO) Empty() bool {
	return d.Name == nil && d.ContactNumber == nil
}

func (d *ProfileUpdateDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		*d.Name = strings.TrimSpace(*d.Name)
		v.Field("name", *d.Name).Required().MaxLength(255)
	}
	if d.ContactNumber != nil {
		*d.ContactNumber = strings.TrimSpace(*d.ContactNumber)
		v.Field("contact_number", *d.ContactNumber).Required().MaxLength(32)
	}
	return v.Validate()
}

func (d *ProfileUpdateDTO) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if d.Name != nil {
		fields["name"] = *d.Name
	}
	if d.ContactNumber != nil {
		fields["contact_number"] = *d.ContactNumber
	}
	return fields
}

type CreateUserDTO struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	Password      string `json:"password"`
	IsAdmin       bool   `json:"is_admin"`
}

func (d *CreateUserDTO) Validate() *errors.AppError {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.ContactNumber = strings.TrimSpace(d.ContactNumber)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("email", d.Email).Required().Email()
	v.Field("contact_number", d.ContactNumber).Required().MaxLength(32)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	return v.Validate()
}

type UpdateUserDTO struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	ContactNumber *string `json:"contact_number"`
	IsAdmin       *bool   `json:"is_admin"`
}

func (d *UpdateUserDTO) Empty() bool {
	return d.Name == nil && d.Email == nil && d.ContactNumber == nil && d.IsAdmin == nil
}

func (d *UpdateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		*d.Name = strings.TrimSpace(*d.Name)
		v.Field("name", *d.Name).Required().MaxLength(255)
	}
	if d.Email != nil {
		*d.Email = strings.ToLower(strings.TrimSpace(*d.Email))
		v.Field("email", *d.Email).Required().Email()
	}
	if d.ContactNumber != nil {
		*d.ContactNumber = strings.TrimSpace(*d.ContactNumber)
		v.Field("contact_number", *d.ContactNumber).Required().MaxLength(32)
	}
	return v.Validate()
}

func (d *UpdateUserDTO) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if d.Name != nil {
		fields["name"] = *d.Name
	}
	if d.Email != nil {
		fields["email"] = *d.Email
	}
	if d.ContactNumber != nil {
		fields["contact_number"] = *d.ContactNumber
	}
	if d.IsAdmin != nil {
		fields["is_admin"] = *d.IsAdmin
	}
	return fields
}

type PasswordResetDTO struct {
	NewPassword string `json:"new_password"`
}

func (d *PasswordResetDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("new_password", d.NewPassword).Required().MinLength(8).MaxLength(72)
	return v.Validate()
}
