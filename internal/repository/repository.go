package repository

import (
	"time"

	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

// ListFilters provides filtering options for searching inventory items
type ListFilters struct {
	CategoryID     int64 // 0 matches every category
	LowStockOnly   bool
	ExpiringBefore *time.Time
	Limit          int
	Offset         int
}

// Repositories bundles the repositories sharing one store
type Repositories struct {
	Categories *CategoryRepository
	Items      *InventoryRepository
	Shopping   *ShoppingListRepository
}

// New creates every repository over st
func New(st *store.Store) *Repositories {
	return &Repositories{
		Categories: NewCategoryRepository(st),
		Items:      NewInventoryRepository(st),
		Shopping:   NewShoppingListRepository(st),
	}
}
