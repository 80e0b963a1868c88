package payment

import (
	"math"
	"strings"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/common/validation"
)

// CreateOrderDTO carries the amount in major units (rupees).
type CreateOrderDTO struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Validate checks amount and currency and normalises the currency code.
func (d *CreateOrderDTO) Validate() *errors.AppError {
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) || d.Amount <= 0 || d.AmountMinor() < 1 {
		return errors.NewValidationFieldError("amount", "Amount must be greater than 0", errors.ErrCodeInvalidAmount)
	}

	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = SupportedCurrency
	}
	if d.Currency != SupportedCurrency {
		return errors.NewValidationFieldError("currency", "Only INR currency is supported", errors.ErrCodeInvalidCurrency)
	}
	return nil
}

// AmountMinor converts the amount to paise.
func (d *CreateOrderDTO) AmountMinor() int64 {
	return int64(math.Round(d.Amount * 100))
}

type OrderResponse struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id"`
	PaymentID int64  `json:"payment_id"`
}

type VerifyDTO struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (d *VerifyDTO) Validate() *errors.AppError {
	d.RazorpayOrderID = strings.TrimSpace(d.RazorpayOrderID)
	d.RazorpayPaymentID = strings.TrimSpace(d.RazorpayPaymentID)
	d.RazorpaySignature = strings.TrimSpace(d.RazorpaySignature)

	validator := validation.NewValidator()
	validator.Field("razorpay_order_id", d.RazorpayOrderID).Required()
	validator.Field("razorpay_payment_id", d.RazorpayPaymentID).Required()
	validator.Field("razorpay_signature", d.RazorpaySignature).Required()
	return validator.Validate()
}
