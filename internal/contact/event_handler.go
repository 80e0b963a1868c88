package contact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
	"github.com/jarvis4everyone/jarvis-backend/pkg/mailer"
)

// EventHandler mails the support inbox when a contact form arrives.
type EventHandler struct {
	mailer     mailer.Sender
	adminEmail string
	logger     *slog.Logger
}

func NewEventHandler(sender mailer.Sender, adminEmail string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mailer:     sender,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

func (h *EventHandler) HandleContactSubmitted(ctx context.Context, event events.Event) error {
	submitted, ok := event.(*events.ContactSubmittedEvent)
	if !ok {
		h.logger.Error("invalid event type for contact submitted handler", "event_type", event.EventType())
		return fmt.Errorf("expected ContactSubmittedEvent, got %T", event)
	}

	if h.adminEmail == "" {
		h.logger.Debug("no admin inbox configured, skipping contact notification", "contact_id", submitted.ContactID)
		return nil
	}

	subject := fmt.Sprintf("[Contact #%d] %s", submitted.ContactID, submitted.Subject)
	body := fmt.Sprintf("From: %s <%s>\n\n%s\n", submitted.Name, submitted.Email, submitted.Message)

	if err := h.mailer.Send(ctx, h.adminEmail, subject, body); err != nil {
		return fmt.Errorf("notify admin about contact %d: %w", submitted.ContactID, err)
	}

	h.logger.Info("contact notification sent", "contact_id", submitted.ContactID)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeContactSubmitted, h.HandleContactSubmitted)
}
