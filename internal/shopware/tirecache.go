package shopware

import "context"

// TireLookup is the inventory-backed classification consumed by the
// financial calculator.
type TireLookup interface {
	IsTire(ctx context.Context, inventoryItemID int64) (bool, error)
}

// TireCache memoizes tire classifications per inventory item. Scope one
// cache to a single report run; classifications are assumed stable for
// that long. Not safe for concurrent use.
type TireCache struct {
	lookup TireLookup
	seen   map[int64]bool
}

func NewTireCache(lookup TireLookup) *TireCache {
	return &TireCache{
		lookup: lookup,
		seen:   make(map[int64]bool),
	}
}

func (tc *TireCache) IsTire(ctx context.Context, inventoryItemID int64) (bool, error) {
	if isTire, ok := tc.seen[inventoryItemID]; ok {
		return isTire, nil
	}
	isTire, err := tc.lookup.IsTire(ctx, inventoryItemID)
	if err != nil {
		return false, err
	}
	tc.seen[inventoryItemID] = isTire
	return isTire, nil
}
