package user

import "time"

type User struct {
	ID            int64      `gorm:"primaryKey"`
	Name          string     `gorm:"column:name;not null"`
	Email         string     `gorm:"column:email;uniqueIndex;not null"`
	ContactNumber string     `gorm:"column:contact_number"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	IsAdmin       bool       `gorm:"column:is_admin;not null"`
	LastLogin     *time.Time `gorm:"column:last_login"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

type RefreshToken struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;index"`
	Token     string    `gorm:"column:token;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
