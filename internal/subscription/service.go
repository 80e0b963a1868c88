package subscription

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
)

type Service struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the subscription service. eventBus may be nil.
func NewService(repo RepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, userID int64) (*Subscription, error) {
	sub, err := s.repo.Latest(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, ErrSubscriptionNotFound) {
			return nil, errors.NewNotFoundError("No subscription found", errors.ErrCodeSubscriptionNotFound)
		}
		return nil, errors.NewInternalError("failed to load subscription", err)
	}
	return FromDataModel(sub), nil
}

// Renew adds months to the user's running subscription. A user without one,
// or whose subscription has lapsed, gets a fresh subscription starting now
// and any older rows are cancelled.
func (s *Service) Renew(ctx context.Context, userID int64, months int) (*Subscription, error) {
	if months < 1 {
		return nil, errors.NewValidationFieldError("months", "months must be at least 1", errors.ErrCodeValidationFailed)
	}

	var renewed *subscriptionDatamodel.Subscription
	backoff := retry.WithMaxRetries(2, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
			var txErr error
			renewed, txErr = s.renewInTx(ctx, tx, userID, months)
			return txErr
		})
		if stdErrors.Is(err, ErrConcurrentUpdate) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to renew subscription", err)
	}

	s.logger.Info("subscription renewed",
		"user_id", userID,
		"subscription_id", renewed.ID,
		"months", months,
		"end_date", renewed.EndDate)
	s.publish(ctx, events.NewSubscriptionRenewedEvent(renewed.ID, userID, renewed.EndDate))

	return FromDataModel(renewed), nil
}

func (s *Service) renewInTx(ctx context.Context, tx RepositoryAPI, userID int64, months int) (*subscriptionDatamodel.Subscription, error) {
	now := s.now()

	active, err := tx.GetActive(ctx, userID)
	switch {
	case err == nil && !now.After(active.EndDate):
		newEnd := EndDateAfter(active.EndDate, months)
		if err := tx.ExtendTo(ctx, active.ID, active.EndDate, newEnd, now); err != nil {
			return nil, err
		}
		active.EndDate = newEnd
		active.UpdatedAt = now
		return active, nil
	case err != nil && !stdErrors.Is(err, ErrSubscriptionNotFound):
		return nil, err
	}

	return s.replaceInTx(ctx, tx, userID, months, now)
}

func (s *Service) replaceInTx(ctx context.Context, tx RepositoryAPI, userID int64, months int, now time.Time) (*subscriptionDatamodel.Subscription, error) {
	if _, err := tx.CancelOpen(ctx, userID, now); err != nil {
		return nil, err
	}

	sub := &subscriptionDatamodel.Subscription{
		UserID:    userID,
		PlanID:    subscriptionDatamodel.PlanMonthly,
		Status:    subscriptionDatamodel.StatusActive,
		StartDate: now,
		EndDate:   EndDateAfter(now, months),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, userID int64) error {
	n, err := s.repo.CancelActive(ctx, userID, s.now())
	if err != nil {
		return errors.NewInternalError("failed to cancel subscription", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("Active subscription not found", errors.ErrCodeSubscriptionNotFound)
	}
	s.logger.Info("subscription cancelled", "user_id", userID)
	return nil
}

// Extend pushes the end date of the user's active subscription, even a
// lapsed one that has not been swept yet.
func (s *Service) Extend(ctx context.Context, userID int64, months int) (*Subscription, error) {
	if months < 1 {
		return nil, errors.NewValidationFieldError("months", "months must be at least 1", errors.ErrCodeValidationFailed)
	}

	active, err := s.repo.GetActive(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, ErrSubscriptionNotFound) {
			return nil, errors.NewNotFoundError("Active subscription not found", errors.ErrCodeSubscriptionNotFound)
		}
		return nil, errors.NewInternalError("failed to load subscription", err)
	}

	now := s.now()
	newEnd := EndDateAfter(active.EndDate, months)
	if err := s.repo.ExtendTo(ctx, active.ID, active.EndDate, newEnd, now); err != nil {
		return nil, errors.NewInternalError("failed to extend subscription", err)
	}
	active.EndDate = newEnd
	active.UpdatedAt = now

	s.logger.Info("subscription extended", "user_id", userID, "months", months, "end_date", newEnd)
	return FromDataModel(active), nil
}

// Activate grants a new subscription without payment, replacing any open one.
func (s *Service) Activate(ctx context.Context, userID int64, months int) (*Subscription, error) {
	if months < 1 {
		return nil, errors.NewValidationFieldError("months", "months must be at least 1", errors.ErrCodeValidationFailed)
	}

	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to look up user", err)
	}
	if !exists {
		return nil, errors.NewNotFoundError("User not found", errors.ErrCodeUserNotFound)
	}

	var created *subscriptionDatamodel.Subscription
	err = s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		var txErr error
		created, txErr = s.replaceInTx(ctx, tx, userID, months, s.now())
		return txErr
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to activate subscription", err)
	}

	s.logger.Info("subscription activated without payment", "user_id", userID, "months", months)
	return FromDataModel(created), nil
}

func (s *Service) ListAll(ctx context.Context, skip, limit int) ([]*Subscription, error) {
	rows, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list subscriptions", err)
	}
	out := make([]*Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}

// ExpireIfDue marks the user's lapsed active subscription as expired.
func (s *Service) ExpireIfDue(ctx context.Context, userID int64) error {
	n, err := s.repo.ExpireForUser(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("subscription expired", "user_id", userID)
	}
	return nil
}

// ExpireDue sweeps every lapsed active subscription.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired lapsed subscriptions", "count", n)
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
