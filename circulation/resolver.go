package circulation

import (
	"context"
	"errors"
	"strings"

	"academy_circulation/models"
)

// Resolver turns a raw scanned or typed code into an item. Pure lookup, no
// side effects; debouncing of rapid duplicate scans belongs to the caller.
type Resolver struct {
	reg ItemRegistry
}

func NewResolver(reg ItemRegistry) *Resolver { return &Resolver{reg: reg} }

// Resolve trims surrounding whitespace and matches the identifier
// case-sensitively.
func (r *Resolver) Resolve(ctx context.Context, rawCode string) (*models.Item, error) {
	code := strings.TrimSpace(rawCode)
	if code == "" {
		return nil, notFound("ItemNotFound", "Item não encontrado!")
	}
	it, err := r.reg.GetByIdentifier(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNoRow) {
			return nil, notFound("ItemNotFound", "Item não encontrado!")
		}
		return nil, transient("resolve item", err)
	}
	return it, nil
}
