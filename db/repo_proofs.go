package db

import (
	"context"
	"errors"

	"academy_circulation/circulation"
	"academy_circulation/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Custody Storage: signature images stored once at checkout, addressed by an
// opaque uuid reference.

func (r *Repo) Store(ctx context.Context, data []byte, mediaType string) (string, error) {
	p := &models.CustodyProof{
		ID:        uuid.NewString(),
		Data:      data,
		MediaType: mediaType,
	}
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *Repo) GetProof(ctx context.Context, ref string) (*models.CustodyProof, error) {
	var p models.CustodyProof
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, circulation.ErrNoRow
		}
		return nil, err
	}
	return &p, nil
}
