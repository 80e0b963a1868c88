package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/jarvis4everyone/jarvis-backend/internal/contact"
	contactDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/contact"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, c *contactDatamodel.Contact) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*contactDatamodel.Contact, error) {
	var c contactDatamodel.Contact
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contact.ErrContactNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) List(ctx context.Context, status string, skip, limit int) ([]*contactDatamodel.Contact, error) {
	query := r.db.WithContext(ctx).Model(&contactDatamodel.Contact{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var contacts []*contactDatamodel.Contact
	err := query.Order("created_at DESC").Order("id DESC").Offset(skip).Limit(limit).Find(&contacts).Error
	return contacts, err
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&contactDatamodel.Contact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contact.ErrContactNotFound
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&contactDatamodel.Contact{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contact.ErrContactNotFound
	}
	return nil
}
