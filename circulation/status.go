package circulation

import (
	"context"
	"iter"
	"time"

	"academy_circulation/models"
)

// Derived loan statuses as reported to callers. StatusOverdue never reaches
// the ledger; it is a read-time classification of an active loan.
const (
	StatusActive   = "active"
	StatusOverdue  = "overdue"
	StatusReturned = "returned"
)

// ComputeStatus classifies a loan at the given instant. A recorded return
// wins over everything; an unreturned loan past its due date is overdue.
func ComputeStatus(loan *models.Loan, asOf time.Time) string {
	if loan.ReturnedAt != nil {
		return StatusReturned
	}
	if loan.DueAt != nil && loan.DueAt.Before(asOf) {
		return StatusOverdue
	}
	return StatusActive
}

// ListOverdue yields every loan overdue as of the given instant. The sequence
// is lazy, read-only and restartable: each range restarts the ledger scan.
func (e *Engine) ListOverdue(ctx context.Context, asOf time.Time) iter.Seq2[models.Loan, error] {
	return func(yield func(models.Loan, error) bool) {
		for loan, err := range e.ledger.ListAll(ctx) {
			if err != nil {
				yield(models.Loan{}, transient("list loans", err))
				return
			}
			if ComputeStatus(&loan, asOf) != StatusOverdue {
				continue
			}
			if !yield(loan, nil) {
				return
			}
		}
	}
}
