package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"gorm.io/gorm"

	paymentDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/payment"
	"github.com/jarvis4everyone/jarvis-backend/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDatamodel.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	err := r.db.WithContext(ctx).Where("razorpay_order_id = ?", orderID).First(&p).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkCompleted only touches rows that are still pending or failed, so of
// two concurrent callers exactly one sees RowsAffected == 1.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, id int64, gatewayPaymentID string, signature *string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":              paymentDatamodel.StatusCompleted,
		"razorpay_payment_id": gatewayPaymentID,
		"failure_reason":      nil,
		"processed_at":        at,
		"updated_at":          at,
	}
	if signature != nil {
		updates["razorpay_signature"] = *signature
	}

	res := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status IN ?", id, []string{paymentDatamodel.StatusPending, paymentDatamodel.StatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id int64, gatewayPaymentID, reason string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":         paymentDatamodel.StatusFailed,
		"failure_reason": reason,
		"processed_at":   at,
		"updated_at":     at,
	}
	if gatewayPaymentID != "" {
		updates["razorpay_payment_id"] = gatewayPaymentID
	}

	res := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, paymentDatamodel.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) Reopen(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, paymentDatamodel.StatusCompleted).
		Updates(map[string]interface{}{
			"status":              paymentDatamodel.StatusPending,
			"razorpay_payment_id": nil,
			"razorpay_signature":  nil,
			"processed_at":        nil,
			"updated_at":          at,
		}).Error
}

func (r *PaymentRepository) List(ctx context.Context, skip, limit int) ([]*paymentDatamodel.Payment, error) {
	var payments []*paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(skip).
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
