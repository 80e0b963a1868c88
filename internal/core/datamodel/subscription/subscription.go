package subscription

import "time"

const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"

	PlanMonthly = "monthly"
)

type Subscription struct {
	ID          int64      `gorm:"primaryKey"`
	UserID      int64      `gorm:"column:user_id;not null;index"`
	PlanID      string     `gorm:"column:plan_id;not null"`
	Status      string     `gorm:"column:status;not null;index"`
	StartDate   time.Time  `gorm:"column:start_date;not null"`
	EndDate     time.Time  `gorm:"column:end_date;not null"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
