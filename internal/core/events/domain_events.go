package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted    = "payment.completed"
	EventTypePaymentFailed       = "payment.failed"
	EventTypeSubscriptionRenewed = "subscription.renewed"
	EventTypeContactSubmitted    = "contact.submitted"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID         int64  `json:"payment_id"`
	UserID            int64  `json:"user_id"`
	Email             string `json:"email"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	AmountMinor       int64  `json:"amount_minor"`
	Currency          string `json:"currency"`
	Source            string `json:"source"`
}

func NewPaymentCompletedEvent(paymentID, userID int64, email, orderID, gatewayPaymentID string, amountMinor int64, currency, source string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: newBase(EventTypePaymentCompleted, map[string]interface{}{
			"payment_id":          paymentID,
			"user_id":             userID,
			"email":               email,
			"razorpay_order_id":   orderID,
			"razorpay_payment_id": gatewayPaymentID,
			"amount_minor":        amountMinor,
			"currency":            currency,
			"source":              source,
		}),
		PaymentID:         paymentID,
		UserID:            userID,
		Email:             email,
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: gatewayPaymentID,
		AmountMinor:       amountMinor,
		Currency:          currency,
		Source:            source,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID       int64  `json:"payment_id"`
	RazorpayOrderID string `json:"razorpay_order_id"`
	FailureReason   string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID int64, orderID, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: newBase(EventTypePaymentFailed, map[string]interface{}{
			"payment_id":        paymentID,
			"razorpay_order_id": orderID,
			"failure_reason":    failureReason,
		}),
		PaymentID:       paymentID,
		RazorpayOrderID: orderID,
		FailureReason:   failureReason,
	}
}

type SubscriptionRenewedEvent struct {
	BaseEvent
	SubscriptionID int64     `json:"subscription_id"`
	UserID         int64     `json:"user_id"`
	EndDate        time.Time `json:"end_date"`
}

func NewSubscriptionRenewedEvent(subscriptionID, userID int64, endDate time.Time) *SubscriptionRenewedEvent {
	return &SubscriptionRenewedEvent{
		BaseEvent: newBase(EventTypeSubscriptionRenewed, map[string]interface{}{
			"subscription_id": subscriptionID,
			"user_id":         userID,
			"end_date":        endDate,
		}),
		SubscriptionID: subscriptionID,
		UserID:         userID,
		EndDate:        endDate,
	}
}

type ContactSubmittedEvent struct {
	BaseEvent
	ContactID int64  `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

func NewContactSubmittedEvent(contactID int64, name, email, subject, message string) *ContactSubmittedEvent {
	return &ContactSubmittedEvent{
		BaseEvent: newBase(EventTypeContactSubmitted, map[string]interface{}{
			"contact_id": contactID,
			"email":      email,
			"subject":    subject,
		}),
		ContactID: contactID,
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
	}
}
