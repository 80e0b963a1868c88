package auth

import (
	"strings"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterDTO struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	Password      string `json:"password"`
}

// RefreshTokenDTO is only used when the refresh cookie is absent.
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

// NormalizeEmail lower-cases and trims an address before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d LoginDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func (d RegisterDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("email", d.Email).Required().Email()
	v.Field("contact_number", d.ContactNumber).Required().MaxLength(32)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	return v.Validate()
}
