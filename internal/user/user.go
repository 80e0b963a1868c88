package user

import (
	"context"
	"errors"

	userDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/user"
	coreuser "github.com/jarvis4everyone/jarvis-backend/internal/core/user"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
)

var ErrUserNotFound = errors.New("user not found")

// WithSubscription is the admin list row: the account plus its latest
// subscription, if any.
type WithSubscription struct {
	*coreuser.User
	Subscription          *subscription.Subscription `json:"subscription"`
	HasSubscription       bool                       `json:"has_subscription"`
	HasActiveSubscription bool                       `json:"has_active_subscription"`
}

type Dashboard struct {
	User                  *coreuser.User             `json:"user"`
	Subscription          *subscription.Subscription `json:"subscription"`
	HasActiveSubscription bool                       `json:"has_active_subscription"`
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	List(ctx context.Context, skip, limit int) ([]*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	// Delete removes the user with their subscriptions and refresh tokens.
	// Payments stay, detached from the user.
	Delete(ctx context.Context, id int64) error
}

// SubscriptionReader returns the latest subscription of a user.
type SubscriptionReader interface {
	Get(ctx context.Context, userID int64) (*subscription.Subscription, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// TokenRevoker logs a user out of every session.
type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) error
}

type ServiceAPI interface {
	Profile(ctx context.Context, userID int64) (*coreuser.User, error)
	UpdateProfile(ctx context.Context, userID int64, dto ProfileUpdateDTO) (*coreuser.User, error)
	Subscription(ctx context.Context, userID int64) (*subscription.Subscription, error)
	Dashboard(ctx context.Context, userID int64) (*Dashboard, error)

	ListWithSubscriptions(ctx context.Context, skip, limit int) ([]*WithSubscription, error)
	Get(ctx context.Context, userID int64) (*coreuser.User, error)
	Create(ctx context.Context, dto CreateUserDTO) (*coreuser.User, error)
	Update(ctx context.Context, userID int64, dto UpdateUserDTO) (*coreuser.User, error)
	ResetPassword(ctx context.Context, userID int64, dto PasswordResetDTO) error
	Delete(ctx context.Context, actorID, userID int64) error
}
