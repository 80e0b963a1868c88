package subscription

import (
	"context"
	"errors"
	"time"

	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
)

// Period is the length of one billing month.
const Period = 30 * 24 * time.Hour

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrConcurrentUpdate     = errors.New("subscription changed concurrently")
)

type Subscription struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	PlanID      string     `json:"plan_id"`
	Status      string     `json:"status"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// IsExpired reports whether the end date has passed. Cancelled
// subscriptions are never considered expired.
func (s *Subscription) IsExpired(now time.Time) bool {
	if s.Status == subscriptionDatamodel.StatusCancelled {
		return false
	}
	return now.After(s.EndDate)
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == subscriptionDatamodel.StatusActive && !s.IsExpired(now)
}

func FromDataModel(s *subscriptionDatamodel.Subscription) *Subscription {
	if s == nil {
		return nil
	}
	return &Subscription{
		ID:          s.ID,
		UserID:      s.UserID,
		PlanID:      s.PlanID,
		Status:      s.Status,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CancelledAt: s.CancelledAt,
	}
}

// EndDateAfter returns start advanced by the given number of periods.
func EndDateAfter(start time.Time, months int) time.Time {
	return start.Add(time.Duration(months) * Period)
}

type RepositoryAPI interface {
	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(repo RepositoryAPI) error) error
	Create(ctx context.Context, s *subscriptionDatamodel.Subscription) error
	// Latest returns the newest active or expired subscription of the user.
	Latest(ctx context.Context, userID int64) (*subscriptionDatamodel.Subscription, error)
	GetActive(ctx context.Context, userID int64) (*subscriptionDatamodel.Subscription, error)
	// ExtendTo moves the end date only if it still equals expectedEnd.
	ExtendTo(ctx context.Context, id int64, expectedEnd, newEnd, now time.Time) error
	CancelOpen(ctx context.Context, userID int64, now time.Time) (int64, error)
	CancelActive(ctx context.Context, userID int64, now time.Time) (int64, error)
	ExpireForUser(ctx context.Context, userID int64, now time.Time) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	DeleteForUser(ctx context.Context, userID int64) error
	List(ctx context.Context, skip, limit int) ([]*subscriptionDatamodel.Subscription, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}

type ServiceAPI interface {
	Get(ctx context.Context, userID int64) (*Subscription, error)
	Renew(ctx context.Context, userID int64, months int) (*Subscription, error)
	Cancel(ctx context.Context, userID int64) error
	Extend(ctx context.Context, userID int64, months int) (*Subscription, error)
	Activate(ctx context.Context, userID int64, months int) (*Subscription, error)
	ListAll(ctx context.Context, skip, limit int) ([]*Subscription, error)
	ExpireIfDue(ctx context.Context, userID int64) error
	ExpireDue(ctx context.Context) (int64, error)
}
