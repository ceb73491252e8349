package circulation

import (
	"context"
	"errors"
	"iter"
	"time"

	"academy_circulation/models"
)

// ErrNoRow is what port implementations return when a lookup finds nothing.
// The engine translates it into the proper domain error per call site.
var ErrNoRow = errors.New("no matching row")

// ItemRegistry is the inventory side. The engine only reads items and flips
// status between available and loaned; rows are owned elsewhere.
type ItemRegistry interface {
	GetByIdentifier(ctx context.Context, code string) (*models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	// SetStatusAtomic flips status only if it still equals expected.
	// Returns false (and no error) when the condition did not hold.
	SetStatusAtomic(ctx context.Context, id, expected, next string) (bool, error)
}

type BorrowerDirectory interface {
	GetBorrower(ctx context.Context, id string) (*models.Borrower, error)
}

// LoanLedger is append-only: loans are inserted once and closed once.
type LoanLedger interface {
	Insert(ctx context.Context, loan *models.Loan) error
	// MarkReturned closes the loan only if still active. Returns false
	// (and no error) when it was already returned.
	MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Loan, error)
	FindActiveByItem(ctx context.Context, itemID string) (*models.Loan, error)
	ListAll(ctx context.Context) iter.Seq2[models.Loan, error]
}

type CustodyStore interface {
	Store(ctx context.Context, data []byte, mediaType string) (ref string, err error)
}
