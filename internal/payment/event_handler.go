package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
	"github.com/jarvis4everyone/jarvis-backend/pkg/mailer"
)

// EventHandler reacts to payment events after the request that raised them
// has returned.
type EventHandler struct {
	mailer mailer.Sender
	logger *slog.Logger
}

func NewEventHandler(sender mailer.Sender, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mailer: sender,
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	h.logger.Info("handling payment completed event",
		"payment_id", completed.PaymentID,
		"user_id", completed.UserID,
		"source", completed.Source,
		"event_id", completed.EventID())

	if h.mailer == nil || completed.Email == "" {
		return nil
	}

	subject := "Your Jarvis subscription payment receipt"
	body := fmt.Sprintf(
		"Thank you for your payment.\n\nAmount: %.2f %s\nOrder: %s\nPayment: %s\n\nYour subscription has been extended.\n",
		float64(completed.AmountMinor)/100,
		completed.Currency,
		completed.RazorpayOrderID,
		completed.RazorpayPaymentID)

	if err := h.mailer.Send(ctx, completed.Email, subject, body); err != nil {
		return fmt.Errorf("send receipt for payment %d: %w", completed.PaymentID, err)
	}
	return nil
}

func (h *EventHandler) HandlePaymentFailed(_ context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.logger.Warn("payment failed",
		"payment_id", failed.PaymentID,
		"order_id", failed.RazorpayOrderID,
		"reason", failed.FailureReason,
		"event_id", failed.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentCompleted, events.EventTypePaymentFailed})
}
