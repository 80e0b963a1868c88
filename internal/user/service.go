package user

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	userDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/user"
	coreuser "github.com/jarvis4everyone/jarvis-backend/internal/core/user"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
)

type Service struct {
	repo          RepositoryAPI
	subscriptions SubscriptionReader
	hasher        PasswordHasher
	tokens        TokenRevoker
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(repo RepositoryAPI, subscriptions SubscriptionReader, hasher PasswordHasher, tokens TokenRevoker, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		subscriptions: subscriptions,
		hasher:        hasher,
		tokens:        tokens,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) load(ctx context.Context, userID int64) (*userDatamodel.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, ErrUserNotFound) {
			return nil, errors.NewNotFoundError("User not found", errors.ErrCodeUserNotFound)
		}
		return nil, errors.NewInternalError("failed to load user", err)
	}
	return u, nil
}

// latestSubscription returns nil without error when the user has none.
func (s *Service) latestSubscription(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	sub, err := s.subscriptions.Get(ctx, userID)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*coreuser.User, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return coreuser.FromDataModel(u), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, dto ProfileUpdateDTO) (*coreuser.User, error) {
	if dto.Empty() {
		return nil, errors.NewValidationError("No valid fields to update", errors.ErrCodeNoFieldsToUpdate)
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	if err := s.update(ctx, userID, dto.fields()); err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", userID)
	return s.Profile(ctx, userID)
}

func (s *Service) Subscription(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	return s.subscriptions.Get(ctx, userID)
}

func (s *Service) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.latestSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		User:                  u,
		Subscription:          sub,
		HasActiveSubscription: sub != nil && sub.IsActive(s.now()),
	}, nil
}

func (s *Service) ListWithSubscriptions(ctx context.Context, skip, limit int) ([]*WithSubscription, error) {
	rows, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list users", err)
	}

	now := s.now()
	out := make([]*WithSubscription, 0, len(rows))
	for _, row := range rows {
		sub, err := s.latestSubscription(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &WithSubscription{
			User:                  coreuser.FromDataModel(row),
			Subscription:          sub,
			HasSubscription:       sub != nil,
			HasActiveSubscription: sub != nil && sub.IsActive(now),
		})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*coreuser.User, error) {
	return s.Profile(ctx, userID)
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*coreuser.User, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if err := s.ensureEmailFree(ctx, dto.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	u := &userDatamodel.User{
		Name:          dto.Name,
		Email:         dto.Email,
		ContactNumber: dto.ContactNumber,
		PasswordHash:  hash,
		IsAdmin:       dto.IsAdmin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created by admin", "user_id", u.ID, "email", u.Email, "is_admin", u.IsAdmin)
	return coreuser.FromDataModel(u), nil
}

func (s *Service) Update(ctx context.Context, userID int64, dto UpdateUserDTO) (*coreuser.User, error) {
	if dto.Empty() {
		return nil, errors.NewValidationError("No fields to update", errors.ErrCodeNoFieldsToUpdate)
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	if dto.Email != nil {
		if err := s.ensureEmailFree(ctx, *dto.Email, userID); err != nil {
			return nil, err
		}
	}

	if err := s.update(ctx, userID, dto.fields()); err != nil {
		return nil, err
	}
	s.logger.Info("user updated by admin", "user_id", userID)
	return s.Profile(ctx, userID)
}

// ResetPassword replaces the password hash and ends every session.
func (s *Service) ResetPassword(ctx context.Context, userID int64, dto PasswordResetDTO) error {
	if appErr := dto.Validate(); appErr != nil {
		return appErr
	}

	hash, err := s.hasher.HashPassword(dto.NewPassword)
	if err != nil {
		return errors.NewInternalError("failed to hash password", err)
	}
	if err := s.update(ctx, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return errors.NewInternalError("failed to revoke sessions", err)
	}

	s.logger.Info("password reset, sessions revoked", "user_id", userID)
	return nil
}

func (s *Service) Delete(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return errors.NewValidationError("Cannot delete yourself", errors.ErrCodeCannotDeleteSelf)
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		if stdErrors.Is(err, ErrUserNotFound) {
			return errors.NewNotFoundError("User not found", errors.ErrCodeUserNotFound)
		}
		return errors.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", userID, "deleted_by", actorID)
	return nil
}

func (s *Service) update(ctx context.Context, userID int64, fields map[string]interface{}) error {
	fields["updated_at"] = s.now()
	if err := s.repo.Update(ctx, userID, fields); err != nil {
		if stdErrors.Is(err, ErrUserNotFound) {
			return errors.NewNotFoundError("User not found", errors.ErrCodeUserNotFound)
		}
		return errors.NewInternalError("failed to update user", err)
	}
	return nil
}

// ensureEmailFree fails when email belongs to a user other than ownerID.
func (s *Service) ensureEmailFree(ctx context.Context, email string, ownerID int64) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != ownerID:
		return errors.NewValidationError("Email already registered", errors.ErrCodeEmailExists)
	case err != nil && !stdErrors.Is(err, ErrUserNotFound):
		return errors.NewInternalError("failed to look up user", err)
	}
	return nil
}
