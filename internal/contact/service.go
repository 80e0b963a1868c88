package contact

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	contactDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/contact"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
)

type Service struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a contact form. userID is set when the sender was logged in.
func (s *Service) Submit(ctx context.Context, userID *int64, dto CreateDTO) (*Contact, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	now := s.now()
	c := &contactDatamodel.Contact{
		UserID:    userID,
		Name:      dto.Name,
		Email:     dto.Email,
		Subject:   dto.Subject,
		Message:   dto.Message,
		Status:    contactDatamodel.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.NewInternalError("failed to store contact", err)
	}

	s.logger.Info("contact submitted", "contact_id", c.ID, "email", c.Email, "authenticated", userID != nil)

	if s.eventBus != nil {
		event := events.NewContactSubmittedEvent(c.ID, c.Name, c.Email, c.Subject, c.Message)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish contact event", "contact_id", c.ID, "error", err)
		}
	}

	return FromDataModel(c), nil
}

func (s *Service) List(ctx context.Context, status string, skip, limit int) ([]*Contact, error) {
	if appErr := ValidateStatusFilter(status); appErr != nil {
		return nil, appErr
	}

	rows, err := s.repo.List(ctx, status, skip, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list contacts", err)
	}
	out := make([]*Contact, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Contact, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "failed to load contact")
	}
	return FromDataModel(c), nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, dto StatusDTO) (*Contact, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	if err := s.repo.UpdateStatus(ctx, id, dto.Status, s.now()); err != nil {
		return nil, mapNotFound(err, "failed to update contact")
	}
	s.logger.Info("contact status updated", "contact_id", id, "status", dto.Status)
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotFound(err, "failed to delete contact")
	}
	s.logger.Info("contact deleted", "contact_id", id)
	return nil
}

func mapNotFound(err error, msg string) error {
	if stdErrors.Is(err, ErrContactNotFound) {
		return errors.NewNotFoundError("Contact not found", errors.ErrCodeContactNotFound)
	}
	return errors.NewInternalError(msg, err)
}
