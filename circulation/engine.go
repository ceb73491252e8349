package circulation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"academy_circulation/models"
)

// Book exemplars without an explicit due date get this loan period.
const bookLoanDays = 14

// Engine orchestrates checkout and return over the collaborator ports.
// It is invoked synchronously per request; there is no background scheduler,
// overdue is computed on demand (see status.go).
type Engine struct {
	reg      ItemRegistry
	dir      BorrowerDirectory
	ledger   LoanLedger
	custody  CustodyStore
	resolver *Resolver

	now func() time.Time
}

func NewEngine(reg ItemRegistry, dir BorrowerDirectory, ledger LoanLedger, custody CustodyStore) *Engine {
	return &Engine{
		reg:      reg,
		dir:      dir,
		ledger:   ledger,
		custody:  custody,
		resolver: NewResolver(reg),
		now:      time.Now,
	}
}

func (e *Engine) Resolver() *Resolver { return e.resolver }

type CheckoutRequest struct {
	BorrowerID string
	// Either a registry id or a raw scanned/typed code; id wins when both set.
	ItemID string
	Code   string

	CheckoutAt time.Time // zero means now
	DueAt      *time.Time

	Proof          []byte // captured signature image, mandatory
	ProofMediaType string
	Accessories    string
}

// Checkout runs the precondition chain in order (first failure wins), then
// performs the effect: flip the item to loaned, store the custody proof and
// insert the active loan. The conditional status flip is the serialization
// point; of N concurrent checkouts on one item exactly one wins the flip and
// every loser observes ItemUnavailable. A failure after the flip compensates
// by flipping back, so no partial state survives.
func (e *Engine) Checkout(ctx context.Context, req CheckoutRequest) (*models.Loan, error) {
	// 1) resolve the item reference
	var item *models.Item
	var err error
	if req.ItemID != "" {
		item, err = e.reg.GetByID(ctx, req.ItemID)
		if errors.Is(err, ErrNoRow) {
			return nil, notFound("ItemNotFound", "Item não encontrado!")
		}
		if err != nil {
			return nil, transient("find item", err)
		}
	} else {
		item, err = e.resolver.Resolve(ctx, req.Code)
		if err != nil {
			return nil, err
		}
	}

	// 2) availability
	if !item.Loanable || item.Status != models.ItemAvailable {
		return nil, conflict("ItemUnavailable", "Item não disponível para empréstimo!")
	}

	// 3) borrower
	b, err := e.dir.GetBorrower(ctx, req.BorrowerID)
	if errors.Is(err, ErrNoRow) {
		return nil, validation("BorrowerInvalid", "Aluno não encontrado!")
	}
	if err != nil {
		return nil, transient("find borrower", err)
	}
	if !b.Active {
		return nil, validation("BorrowerInvalid", "Aluno inativo!")
	}

	// 4) custody proof
	if len(req.Proof) == 0 {
		return nil, validation("ProofRequired", "Assinatura obrigatória!")
	}

	// 5) date range
	checkoutAt := req.CheckoutAt
	if checkoutAt.IsZero() {
		checkoutAt = e.now().UTC()
	}
	dueAt := req.DueAt
	if dueAt != nil && checkoutAt.After(*dueAt) {
		return nil, validation("InvalidDateRange", "Data de devolução anterior à retirada!")
	}
	if dueAt == nil && item.Kind == models.KindBookExemplar {
		d := checkoutAt.AddDate(0, 0, bookLoanDays)
		dueAt = &d
	}

	// Effect. The flip serializes concurrent checkouts on this item.
	ok, err := e.reg.SetStatusAtomic(ctx, item.ID, models.ItemAvailable, models.ItemLoaned)
	if err != nil {
		return nil, transient("reserve item", err)
	}
	if !ok {
		return nil, conflict("ItemUnavailable", "Item não disponível para empréstimo!")
	}

	ref, err := e.custody.Store(ctx, req.Proof, req.ProofMediaType)
	if err != nil {
		e.releaseItem(ctx, item.ID)
		return nil, transient("store custody proof", err)
	}

	loan := &models.Loan{
		ID:          uuid.NewString(),
		ItemID:      item.ID,
		BorrowerID:  b.ID,
		CheckoutAt:  checkoutAt,
		DueAt:       dueAt,
		Status:      models.LoanActive,
		ProofRef:    ref,
		Accessories: req.Accessories,
	}
	if err := e.ledger.Insert(ctx, loan); err != nil {
		e.releaseItem(ctx, item.ID)
		return nil, transient("insert loan", err)
	}
	return loan, nil
}

// Return closes an active loan. The conditional mark-returned is atomic: of
// two racing returns on the same loan one wins and the other observes
// AlreadyReturned. The item goes back to available unless it was externally
// moved to maintenance/lost in the meantime, in which case only the loan is
// closed.
func (e *Engine) Return(ctx context.Context, loanID string) (*models.Loan, error) {
	loan, err := e.ledger.FindByID(ctx, loanID)
	if errors.Is(err, ErrNoRow) {
		return nil, notFound("LoanNotFound", "Empréstimo não encontrado!")
	}
	if err != nil {
		return nil, transient("find loan", err)
	}

	returnedAt := e.now().UTC()
	if returnedAt.Before(loan.CheckoutAt) {
		// future-dated checkout; a return can never predate it
		returnedAt = loan.CheckoutAt
	}

	ok, err := e.ledger.MarkReturned(ctx, loan.ID, returnedAt)
	if err != nil {
		return nil, transient("mark returned", err)
	}
	if !ok {
		return nil, stateErr("AlreadyReturned", "Empréstimo já finalizado!")
	}

	if _, err := e.reg.SetStatusAtomic(ctx, loan.ItemID, models.ItemLoaned, models.ItemAvailable); err != nil {
		// loan is closed either way; the item flip will be retried by the
		// next checkout attempt surfacing the inconsistency
		log.Printf("return %s: release item %s: %v", loan.ID, loan.ItemID, err)
	}

	loan.ReturnedAt = &returnedAt
	loan.Status = models.LoanReturned
	return loan, nil
}

// ReturnByCode closes the active loan of a scanned item, the counter-side of
// checkout by barcode.
func (e *Engine) ReturnByCode(ctx context.Context, rawCode string) (*models.Loan, error) {
	item, err := e.resolver.Resolve(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	loan, err := e.ledger.FindActiveByItem(ctx, item.ID)
	if errors.Is(err, ErrNoRow) {
		return nil, notFound("LoanNotFound", "Nenhum empréstimo ativo encontrado para este item.")
	}
	if err != nil {
		return nil, transient("find active loan", err)
	}
	return e.Return(ctx, loan.ID)
}

type LoanFilter struct {
	BorrowerID string
	ItemID     string
	Status     string // "", active, overdue, returned (derived)
}

// ListLoans filters the ledger by borrower, item and derived status.
func (e *Engine) ListLoans(ctx context.Context, f LoanFilter, asOf time.Time) ([]models.Loan, error) {
	var out []models.Loan
	for loan, err := range e.ledger.ListAll(ctx) {
		if err != nil {
			return nil, transient("list loans", err)
		}
		if f.BorrowerID != "" && loan.BorrowerID != f.BorrowerID {
			continue
		}
		if f.ItemID != "" && loan.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && ComputeStatus(&loan, asOf) != f.Status {
			continue
		}
		out = append(out, loan)
	}
	return out, nil
}

func (e *Engine) releaseItem(ctx context.Context, itemID string) {
	if _, err := e.reg.SetStatusAtomic(ctx, itemID, models.ItemLoaned, models.ItemAvailable); err != nil {
		log.Printf("checkout rollback: release item %s: %v", itemID, err)
	}
}
