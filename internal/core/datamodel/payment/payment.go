package payment

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Payment is a gateway order and its outcome. RazorpayPaymentID stays NULL
// until the gateway assigns one; the unique index on it is partial so any
// number of pending rows can coexist.
type Payment struct {
	ID                int64      `gorm:"primaryKey"`
	UserID            *int64     `gorm:"column:user_id;index"`
	Email             string     `gorm:"column:email;not null"`
	PlanID            string     `gorm:"column:plan_id;not null"`
	AmountMinor       int64      `gorm:"column:amount_minor;not null"`
	Currency          string     `gorm:"column:currency;not null"`
	RazorpayOrderID   string     `gorm:"column:razorpay_order_id;not null;uniqueIndex"`
	RazorpayPaymentID *string    `gorm:"column:razorpay_payment_id;uniqueIndex:idx_payments_razorpay_payment_id,where:razorpay_payment_id IS NOT NULL"`
	RazorpaySignature *string    `gorm:"column:razorpay_signature"`
	Status            string     `gorm:"column:status;not null;index"`
	FailureReason     *string    `gorm:"column:failure_reason"`
	ProcessedAt       *time.Time `gorm:"column:processed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
