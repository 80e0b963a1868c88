package contact

import (
	"context"
	"errors"
	"time"

	contactDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/contact"
)

var ErrContactNotFound = errors.New("contact not found")

// Statuses lists the values a contact submission can move between.
var Statuses = []string{
	contactDatamodel.StatusNew,
	contactDatamodel.StatusRead,
	contactDatamodel.StatusReplied,
	contactDatamodel.StatusArchived,
}

type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	UserID    *int64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromDataModel(c *contactDatamodel.Contact) *Contact {
	if c == nil {
		return nil
	}
	return &Contact{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Subject:   c.Subject,
		Message:   c.Message,
		Status:    c.Status,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type RepositoryAPI interface {
	Create(ctx context.Context, c *contactDatamodel.Contact) error
	GetByID(ctx context.Context, id int64) (*contactDatamodel.Contact, error)
	// List returns newest first. An empty status matches every row.
	List(ctx context.Context, status string, skip, limit int) ([]*contactDatamodel.Contact, error)
	UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type ServiceAPI interface {
	Submit(ctx context.Context, userID *int64, dto CreateDTO) (*Contact, error)
	List(ctx context.Context, status string, skip, limit int) ([]*Contact, error)
	Get(ctx context.Context, id int64) (*Contact, error)
	UpdateStatus(ctx context.Context, id int64, dto StatusDTO) (*Contact, error)
	Delete(ctx context.Context, id int64) error
}
