package db

import (
	"context"
	"errors"
	"iter"
	"time"

	"academy_circulation/circulation"
	"academy_circulation/models"

	"gorm.io/gorm"
)

// Loan Ledger. Append-only: Insert and MarkReturned are the only writers, no
// delete exists. The partial unique index created in Migrate backs up the
// one-active-loan-per-item invariant at the storage level.

func (r *Repo) Insert(ctx context.Context, loan *models.Loan) error {
	return r.DB.WithContext(ctx).Create(loan).Error
}

// MarkReturned closes the loan with a single conditional UPDATE. A second
// racing caller sees RowsAffected == 0 and reports AlreadyReturned upstream.
func (r *Repo) MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ? AND status = ?", loanID, models.LoanActive).
		Updates(map[string]interface{}{
			"returned_at": returnedAt,
			"status":      models.LoanReturned,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, circulation.ErrNoRow
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) FindActiveByItem(ctx context.Context, itemID string) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).
		Where("item_id = ? AND status = ?", itemID, models.LoanActive).
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, circulation.ErrNoRow
		}
		return nil, err
	}
	return &l, nil
}

// ListAll streams loans newest first without loading the whole table.
// Restartable: every range opens a fresh cursor.
func (r *Repo) ListAll(ctx context.Context) iter.Seq2[models.Loan, error] {
	return func(yield func(models.Loan, error) bool) {
		rows, err := r.DB.WithContext(ctx).Model(&models.Loan{}).
			Order("checkout_at DESC").Rows()
		if err != nil {
			yield(models.Loan{}, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var l models.Loan
			if err := r.DB.ScanRows(rows, &l); err != nil {
				yield(models.Loan{}, err)
				return
			}
			if !yield(l, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Loan{}, err)
		}
	}
}
