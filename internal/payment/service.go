package payment

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	paymentDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/paymentgateway"
	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
	"github.com/jarvis4everyone/jarvis-backend/internal/paymentgateway"
)

// completionTimeout bounds the detached completion of a payment.
const completionTimeout = 30 * time.Second

type Service struct {
	repo     RepositoryAPI
	gateway  Gateway
	renewer  Renewer
	jobs     JobQueue
	eventBus *events.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, gateway Gateway, renewer Renewer, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		renewer:  renewer,
		eventBus: eventBus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetJobQueue wires the webhook worker pool. The pool is built after the
// service because its workers call back into ProcessWebhookJob.
func (s *Service) SetJobQueue(q JobQueue) {
	s.jobs = q
}

func (s *Service) CreateOrder(ctx context.Context, userID int64, email string, dto CreateOrderDTO) (*OrderResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	order, err := s.gateway.CreateOrder(ctx, &paymentgatewaytypes.OrderRequest{
		Amount:         dto.AmountMinor(),
		Currency:       dto.Currency,
		Receipt:        receipt,
		PaymentCapture: 1,
		Notes:          map[string]string{"user_id": strconv.FormatInt(userID, 10)},
	})
	if err != nil {
		if stdErrors.Is(err, paymentgateway.ErrGatewayUnavailable) {
			return nil, errors.NewServiceUnavailableError(
				"Payment service temporarily unavailable. Please try again in a moment.",
				errors.ErrCodeGatewayUnavailable).WithCause(err)
		}
		return nil, errors.NewInternalError("Failed to create payment order. Please try again.", err)
	}

	now := s.now()
	uid := userID
	record := &paymentDatamodel.Payment{
		UserID:          &uid,
		Email:           email,
		PlanID:          subscriptionDatamodel.PlanMonthly,
		AmountMinor:     order.Amount,
		Currency:        order.Currency,
		RazorpayOrderID: order.ID,
		Status:          paymentDatamodel.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, errors.NewInternalError("failed to store payment", err)
	}

	s.logger.Info("payment order created",
		"user_id", userID,
		"order_id", order.ID,
		"payment_id", record.ID,
		"amount_minor", order.Amount)

	return &OrderResponse{
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		KeyID:     s.gateway.KeyID(),
		PaymentID: record.ID,
	}, nil
}

// Verify checks the checkout signature and, for the first successful call,
// completes the payment and renews the caller's subscription by one month.
// Repeating a successful verify returns the completed payment unchanged.
func (s *Service) Verify(ctx context.Context, userID int64, dto VerifyDTO) (*Payment, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	p, err := s.repo.GetByOrderID(ctx, dto.RazorpayOrderID)
	if err != nil {
		if stdErrors.Is(err, ErrPaymentNotFound) {
			s.logger.Warn("payment record not found", "order_id", dto.RazorpayOrderID)
			return nil, errors.NewNotFoundError("Payment record not found", errors.ErrCodePaymentNotFound)
		}
		return nil, errors.NewInternalError("failed to load payment", err)
	}

	if p.UserID == nil || *p.UserID != userID {
		s.logger.Warn("payment ownership mismatch", "order_id", p.RazorpayOrderID, "user_id", userID)
		return nil, errors.NewForbiddenError("Payment does not belong to current user", errors.ErrCodePaymentNotOwned)
	}

	if !s.gateway.VerifyPaymentSignature(dto.RazorpayOrderID, dto.RazorpayPaymentID, dto.RazorpaySignature) {
		s.logger.Warn("invalid payment signature", "order_id", dto.RazorpayOrderID, "user_id", userID)
		return nil, errors.NewValidationError("Invalid payment signature", errors.ErrCodeInvalidSignature)
	}

	signature := dto.RazorpaySignature
	completed, err := s.complete(ctx, p, dto.RazorpayPaymentID, &signature, SourceVerify)
	if err != nil {
		return nil, err
	}
	return FromDataModel(completed), nil
}

// complete runs the pending to completed transition and the renewal that
// belongs to it. Only the caller that wins the transition renews. Once
// started, the transition, renewal and reopen ignore the caller's
// cancellation; a completed payment always has its renewal.
func (s *Service) complete(reqCtx context.Context, p *paymentDatamodel.Payment, gatewayPaymentID string, signature *string, source string) (*paymentDatamodel.Payment, error) {
	if p.Status == paymentDatamodel.StatusCompleted {
		return p, nil
	}
	if p.Status == paymentDatamodel.StatusRefunded {
		return nil, errors.NewConflictError("Payment has been refunded", errors.ErrCodeValidationFailed)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), completionTimeout)
	defer cancel()

	now := s.now()
	won, err := s.repo.MarkCompleted(ctx, p.ID, gatewayPaymentID, signature, now)
	if err != nil {
		return nil, errors.NewInternalError("failed to complete payment", err)
	}
	if !won {
		current, err := s.repo.GetByOrderID(ctx, p.RazorpayOrderID)
		if err != nil {
			return nil, errors.NewInternalError("failed to reload payment", err)
		}
		return current, nil
	}

	p.Status = paymentDatamodel.StatusCompleted
	p.RazorpayPaymentID = &gatewayPaymentID
	p.RazorpaySignature = signature
	p.ProcessedAt = &now
	p.UpdatedAt = now

	if p.UserID != nil {
		sub, err := s.renewer.Renew(ctx, *p.UserID, 1)
		if err != nil {
			s.logger.Error("renewal after payment failed, reopening payment",
				"payment_id", p.ID,
				"user_id", *p.UserID,
				"error", err)
			if rerr := s.repo.Reopen(ctx, p.ID, s.now()); rerr != nil {
				s.logger.Error("failed to reopen payment", "payment_id", p.ID, "error", rerr)
			}
			return nil, errors.NewInternalError("failed to activate subscription", err)
		}
		s.logger.Info("payment completed and subscription renewed",
			"payment_id", p.ID,
			"user_id", *p.UserID,
			"subscription_id", sub.ID,
			"end_date", sub.EndDate,
			"source", source)

		s.publish(ctx, events.NewPaymentCompletedEvent(
			p.ID, *p.UserID, p.Email, p.RazorpayOrderID, gatewayPaymentID, p.AmountMinor, p.Currency, source))
	} else {
		s.logger.Warn("completed payment has no owner, skipping renewal", "payment_id", p.ID)
	}

	return p, nil
}

// HandleWebhook authenticates a Razorpay webhook and queues it.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if signature == "" {
		return errors.NewValidationError("Missing webhook signature", errors.ErrCodeInvalidSignature)
	}
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.logger.Warn("invalid webhook signature")
		return errors.NewValidationError("Invalid webhook signature", errors.ErrCodeInvalidSignature)
	}

	var event paymentgatewaytypes.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.NewValidationError("invalid webhook payload", errors.ErrCodeInvalidBody).WithCause(err)
	}

	job := paymentgateway.WebhookJob{Event: event, ReceivedAt: s.now()}
	if s.jobs == nil {
		s.ProcessWebhookJob(ctx, job)
		return nil
	}
	if err := s.jobs.Submit(job); err != nil {
		return errors.NewServiceUnavailableError("Webhook queue is busy", errors.ErrCodeGatewayUnavailable).WithCause(err)
	}
	return nil
}

// ProcessWebhookJob applies a webhook event. It runs on the worker pool.
func (s *Service) ProcessWebhookJob(ctx context.Context, job paymentgateway.WebhookJob) {
	entity := job.Event.Payload.Payment.Entity
	log := s.logger.With("event", job.Event.Event, "order_id", entity.OrderID, "gateway_payment_id", entity.ID)

	if entity.OrderID == "" {
		log.Debug("webhook without order id ignored")
		return
	}

	switch job.Event.Event {
	case paymentgatewaytypes.WebhookEventPaymentCaptured:
		if entity.ID == "" {
			log.Warn("captured webhook without gateway payment id ignored")
			return
		}
	case paymentgatewaytypes.WebhookEventPaymentFailed:
	default:
		log.Debug("webhook event ignored")
		return
	}

	p, err := s.repo.GetByOrderID(ctx, entity.OrderID)
	if err != nil {
		if stdErrors.Is(err, ErrPaymentNotFound) {
			log.Warn("webhook for unknown order")
			return
		}
		log.Error("failed to load payment for webhook", "error", err)
		return
	}

	switch job.Event.Event {
	case paymentgatewaytypes.WebhookEventPaymentCaptured:
		if p.Status != paymentDatamodel.StatusPending {
			log.Info("payment already processed", "status", p.Status)
			return
		}
		if _, err := s.complete(ctx, p, entity.ID, nil, SourceWebhook); err != nil {
			log.Error("failed to complete payment from webhook", "error", err)
			return
		}
		log.Info("payment captured via webhook", "payment_id", p.ID)

	case paymentgatewaytypes.WebhookEventPaymentFailed:
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "payment failed"
		}
		won, err := s.repo.MarkFailed(ctx, p.ID, entity.ID, reason, s.now())
		if err != nil {
			log.Error("failed to mark payment failed", "error", err)
			return
		}
		if won {
			log.Info("payment marked failed", "payment_id", p.ID, "reason", reason)
			s.publish(ctx, events.NewPaymentFailedEvent(p.ID, p.RazorpayOrderID, reason))
		}
	}
}

func (s *Service) ListAll(ctx context.Context, skip, limit int) ([]*Payment, error) {
	rows, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list payments", err)
	}
	out := make([]*Payment, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
