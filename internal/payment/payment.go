package payment

import (
	"context"
	"errors"
	"time"

	paymentDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/paymentgateway"
	"github.com/jarvis4everyone/jarvis-backend/internal/paymentgateway"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
)

// SupportedCurrency is the only currency orders can be created in.
const SupportedCurrency = "INR"

const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Payment is the API view of a payment. Amount is in major units.
type Payment struct {
	ID                int64     `json:"id"`
	UserID            *int64    `json:"user_id"`
	Email             string    `json:"email"`
	PlanID            string    `json:"plan_id"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	RazorpayOrderID   string    `json:"razorpay_order_id"`
	RazorpayPaymentID *string   `json:"razorpay_payment_id"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

func FromDataModel(p *paymentDatamodel.Payment) *Payment {
	if p == nil {
		return nil
	}
	return &Payment{
		ID:                p.ID,
		UserID:            p.UserID,
		Email:             p.Email,
		PlanID:            p.PlanID,
		Amount:            float64(p.AmountMinor) / 100,
		Currency:          p.Currency,
		RazorpayOrderID:   p.RazorpayOrderID,
		RazorpayPaymentID: p.RazorpayPaymentID,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
	}
}

// Gateway is the part of the Razorpay client the service needs.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req *paymentgatewaytypes.OrderRequest) (*paymentgatewaytypes.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Renewer extends a user's subscription after a payment completes.
type Renewer interface {
	Renew(ctx context.Context, userID int64, months int) (*subscription.Subscription, error)
}

// JobQueue accepts verified webhook events for asynchronous processing.
type JobQueue interface {
	Submit(job paymentgateway.WebhookJob) error
}

type RepositoryAPI interface {
	Create(ctx context.Context, p *paymentDatamodel.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error)
	// MarkCompleted moves a pending or failed payment to completed. It
	// reports false when another caller already completed it.
	MarkCompleted(ctx context.Context, id int64, gatewayPaymentID string, signature *string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, gatewayPaymentID, reason string, at time.Time) (bool, error)
	// Reopen puts a completed payment back to pending when the renewal that
	// should follow it could not be applied.
	Reopen(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, skip, limit int) ([]*paymentDatamodel.Payment, error)
}

type ServiceAPI interface {
	CreateOrder(ctx context.Context, userID int64, email string, dto CreateOrderDTO) (*OrderResponse, error)
	Verify(ctx context.Context, userID int64, dto VerifyDTO) (*Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	ListAll(ctx context.Context, skip, limit int) ([]*Payment, error)
}
