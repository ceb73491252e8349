package db

import (
	"context"
	"errors"

	"academy_circulation/circulation"
	"academy_circulation/models"

	"gorm.io/gorm"
)

// Item Registry. The engine only reads items and flips status; item CRUD is
// owned by the inventory feature outside this service.

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	return r.DB.WithContext(ctx).Create(it).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, circulation.ErrNoRow
		}
		return nil, err
	}
	return &it, nil
}

func (r *Repo) GetByIdentifier(ctx context.Context, code string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "identifier = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, circulation.ErrNoRow
		}
		return nil, err
	}
	return &it, nil
}

// SetStatusAtomic is a single conditional UPDATE; RowsAffected == 0 means the
// expected status no longer held and the flip was not applied.
func (r *Repo) SetStatusAtomic(ctx context.Context, id, expected, next string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
