package circulation

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"academy_circulation/models"
)

// In-memory reference implementations of the collaborator ports. They define
// the contract semantics (conditional writes, append-only ledger) without a
// database and double as fixtures for the engine and boundary tests.

type MemoryRegistry struct {
	mu    sync.Mutex
	items map[string]*models.Item // by id
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{items: make(map[string]*models.Item)}
}

func (r *MemoryRegistry) Add(it models.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := it
	r.items[it.ID] = &cp
}

func (r *MemoryRegistry) GetByID(_ context.Context, id string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, ErrNoRow
	}
	cp := *it
	return &cp, nil
}

func (r *MemoryRegistry) GetByIdentifier(_ context.Context, code string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Identifier == code {
			cp := *it
			return &cp, nil
		}
	}
	return nil, ErrNoRow
}

func (r *MemoryRegistry) SetStatusAtomic(_ context.Context, id, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Status != expected {
		return false, nil
	}
	it.Status = next
	it.UpdatedAt = time.Now().UTC()
	return true, nil
}

type MemoryDirectory struct {
	mu        sync.Mutex
	borrowers map[string]*models.Borrower
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{borrowers: make(map[string]*models.Borrower)}
}

func (d *MemoryDirectory) Add(b models.Borrower) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := b
	d.borrowers[b.ID] = &cp
}

func (d *MemoryDirectory) GetBorrower(_ context.Context, id string) (*models.Borrower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.borrowers[id]
	if !ok {
		return nil, ErrNoRow
	}
	cp := *b
	return &cp, nil
}

type MemoryLedger struct {
	mu    sync.Mutex
	loans map[string]*models.Loan
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{loans: make(map[string]*models.Loan)}
}

func (l *MemoryLedger) Insert(_ context.Context, loan *models.Loan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cp := *loan
	cp.CreatedAt = now
	cp.UpdatedAt = now
	l.loans[cp.ID] = &cp
	return nil
}

func (l *MemoryLedger) MarkReturned(_ context.Context, loanID string, returnedAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.loans[loanID]
	if !ok || loan.Status != models.LoanActive {
		return false, nil
	}
	at := returnedAt
	loan.ReturnedAt = &at
	loan.Status = models.LoanReturned
	loan.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (l *MemoryLedger) FindByID(_ context.Context, id string) (*models.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.loans[id]
	if !ok {
		return nil, ErrNoRow
	}
	cp := *loan
	return &cp, nil
}

func (l *MemoryLedger) FindActiveByItem(_ context.Context, itemID string) (*models.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, loan := range l.loans {
		if loan.ItemID == itemID && loan.Status == models.LoanActive {
			cp := *loan
			return &cp, nil
		}
	}
	return nil, ErrNoRow
}

// ListAll snapshots under the lock, then yields newest first. Restartable:
// every range takes a fresh snapshot.
func (l *MemoryLedger) ListAll(_ context.Context) iter.Seq2[models.Loan, error] {
	return func(yield func(models.Loan, error) bool) {
		l.mu.Lock()
		snapshot := make([]models.Loan, 0, len(l.loans))
		for _, loan := range l.loans {
			snapshot = append(snapshot, *loan)
		}
		l.mu.Unlock()
		sort.Slice(snapshot, func(i, j int) bool {
			return snapshot[i].CheckoutAt.After(snapshot[j].CheckoutAt)
		})
		for _, loan := range snapshot {
			if !yield(loan, nil) {
				return
			}
		}
	}
}

// ActiveCount reports how many active loans exist for an item; test hook for
// the one-active-loan-per-item invariant.
func (l *MemoryLedger) ActiveCount(itemID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, loan := range l.loans {
		if loan.ItemID == itemID && loan.Status == models.LoanActive {
			n++
		}
	}
	return n
}

type MemoryCustody struct {
	mu     sync.Mutex
	proofs map[string][]byte
}

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{proofs: make(map[string][]byte)}
}

func (c *MemoryCustody) Store(_ context.Context, data []byte, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := uuid.NewString()
	c.proofs[ref] = append([]byte(nil), data...)
	return ref, nil
}
