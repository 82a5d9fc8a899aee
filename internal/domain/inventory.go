package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrConstraint is returned when a write violates a referential or integrity constraint
var ErrConstraint = errors.New("constraint violation")

// Category groups inventory items; deleting a category deletes its items
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InventoryItem represents the core business entity for inventory tracking
type InventoryItem struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	CategoryID     int64           `json:"category_id"`
	Quantity       int             `json:"quantity"`
	MinStockLevel  int             `json:"min_stock_level"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	WarrantyDate   *time.Time      `json:"warranty_date,omitempty"`
	Price          decimal.Decimal `json:"price"`
	ImagePath      *string         `json:"image_path,omitempty"`
	Barcode        *string         `json:"barcode,omitempty"`
	Location       string          `json:"location"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsLowStock checks if the item is at or below its minimum stock level
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinStockLevel
}

// IsExpiringBy reports whether the item has an expiration date on or before deadline
func (i *InventoryItem) IsExpiringBy(deadline time.Time) bool {
	return i.ExpirationDate != nil && !i.ExpirationDate.After(deadline)
}

// IsWarrantyExpiringBy reports whether the item's warranty ends on or before deadline
func (i *InventoryItem) IsWarrantyExpiringBy(deadline time.Time) bool {
	return i.WarrantyDate != nil && !i.WarrantyDate.After(deadline)
}

// IsExpired reports whether the expiration date is already in the past
func (i *InventoryItem) IsExpired(now time.Time) bool {
	return i.ExpirationDate != nil && i.ExpirationDate.Before(now)
}

// Priority ranks shopping list entries
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// ShoppingListItem is an entry on the shopping list, optionally linked to an inventory item
type ShoppingListItem struct {
	ID              int64     `json:"id"`
	InventoryItemID *int64    `json:"inventory_item_id,omitempty"`
	Name            string    `json:"name"`
	Quantity        int       `json:"quantity"`
	Priority        Priority  `json:"priority"`
	IsCompleted     bool      `json:"is_completed"`
	CreatedAt       time.Time `json:"created_at"`
	Notes           string    `json:"notes"`
}
