package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"gorm.io/gorm"

	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithTx(ctx context.Context, fn func(repo subscription.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SubscriptionRepository{db: tx})
	})
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *subscriptionDatamodel.Subscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SubscriptionRepository) Latest(ctx context.Context, userID int64) (*subscriptionDatamodel.Subscription, error) {
	var s subscriptionDatamodel.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{subscriptionDatamodel.StatusActive, subscriptionDatamodel.StatusExpired}).
		Order("created_at DESC").
		Order("id DESC").
		First(&s).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) GetActive(ctx context.Context, userID int64) (*subscriptionDatamodel.Subscription, error) {
	var s subscriptionDatamodel.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, subscriptionDatamodel.StatusActive).
		Order("end_date DESC").
		First(&s).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) ExtendTo(ctx context.Context, id int64, expectedEnd, newEnd, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&subscriptionDatamodel.Subscription{}).
		Where("id = ? AND end_date = ?", id, expectedEnd).
		Updates(map[string]interface{}{
			"end_date":   newEnd,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return subscription.ErrConcurrentUpdate
	}
	return nil
}

func (r *SubscriptionRepository) CancelOpen(ctx context.Context, userID int64, now time.Time) (int64, error) {
	return r.cancelWhere(ctx, userID, now, subscriptionDatamodel.StatusActive, subscriptionDatamodel.StatusExpired)
}

func (r *SubscriptionRepository) CancelActive(ctx context.Context, userID int64, now time.Time) (int64, error) {
	return r.cancelWhere(ctx, userID, now, subscriptionDatamodel.StatusActive)
}

func (r *SubscriptionRepository) cancelWhere(ctx context.Context, userID int64, now time.Time, statuses ...string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&subscriptionDatamodel.Subscription{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Updates(map[string]interface{}{
			"status":       subscriptionDatamodel.StatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

func (r *SubscriptionRepository) ExpireForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&subscriptionDatamodel.Subscription{}).
		Where("user_id = ? AND status = ? AND end_date < ?", userID, subscriptionDatamodel.StatusActive, now).
		Updates(map[string]interface{}{
			"status":     subscriptionDatamodel.StatusExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&subscriptionDatamodel.Subscription{}).
		Where("status = ? AND end_date < ?", subscriptionDatamodel.StatusActive, now).
		Updates(map[string]interface{}{
			"status":     subscriptionDatamodel.StatusExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *SubscriptionRepository) DeleteForUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&subscriptionDatamodel.Subscription{}).Error
}

func (r *SubscriptionRepository) List(ctx context.Context, skip, limit int) ([]*subscriptionDatamodel.Subscription, error) {
	var subs []*subscriptionDatamodel.Subscription
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(skip).
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("users").Where("id = ?", userID).Count(&n).Error
	return n > 0, err
}
