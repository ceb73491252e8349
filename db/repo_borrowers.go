package db

import (
	"context"
	"errors"

	"academy_circulation/circulation"
	"academy_circulation/models"

	"gorm.io/gorm"
)

// Borrower Directory, read-only to the engine.

func (r *Repo) GetBorrower(ctx context.Context, id string) (*models.Borrower, error) {
	var b models.Borrower
	if err := r.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, circulation.ErrNoRow
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) CreateBorrower(ctx context.Context, b *models.Borrower) error {
	return r.DB.WithContext(ctx).Create(b).Error
}
