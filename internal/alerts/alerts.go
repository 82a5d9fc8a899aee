// Package alerts decides which inventory items need attention. Every function
// is pure: the caller supplies the items and the current time.
package alerts

import (
	"time"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
)

const (
	// ExpiryWindow is how far ahead an expiration date counts as expiring
	ExpiryWindow = 7 * 24 * time.Hour
	// WarrantyWindow is how far ahead a warranty end counts as expiring
	WarrantyWindow = 30 * 24 * time.Hour
)

// IsLowStock reports whether quantity is at or below the minimum stock level
func IsLowStock(item domain.InventoryItem) bool {
	return item.IsLowStock()
}

// IsExpiring reports whether the item expires within ExpiryWindow of now.
// Items already past their date are included.
func IsExpiring(item domain.InventoryItem, now time.Time) bool {
	return item.IsExpiringBy(now.Add(ExpiryWindow))
}

// IsWarrantyExpiring reports whether the warranty ends within WarrantyWindow of now
func IsWarrantyExpiring(item domain.InventoryItem, now time.Time) bool {
	return item.IsWarrantyExpiringBy(now.Add(WarrantyWindow))
}

// LowStock returns the low stock items in input order
func LowStock(items []domain.InventoryItem) []domain.InventoryItem {
	return filter(items, IsLowStock)
}

// Expiring returns the expiring items in input order
func Expiring(items []domain.InventoryItem, now time.Time) []domain.InventoryItem {
	return filter(items, func(item domain.InventoryItem) bool { return IsExpiring(item, now) })
}

// WarrantyExpiring returns the items whose warranty is about to end, in input order
func WarrantyExpiring(items []domain.InventoryItem, now time.Time) []domain.InventoryItem {
	return filter(items, func(item domain.InventoryItem) bool { return IsWarrantyExpiring(item, now) })
}

func filter(items []domain.InventoryItem, keep func(domain.InventoryItem) bool) []domain.InventoryItem {
	var result []domain.InventoryItem
	for _, item := range items {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// Report groups the items of one evaluation by alert kind
type Report struct {
	LowStock         []domain.InventoryItem
	Expiring         []domain.InventoryItem
	WarrantyExpiring []domain.InventoryItem
}

// Counts holds the size of each group in a Report
type Counts struct {
	LowStock         int
	Expiring         int
	WarrantyExpiring int
}

// Evaluate builds the report for items at now
func Evaluate(items []domain.InventoryItem, now time.Time) Report {
	return Report{
		LowStock:         LowStock(items),
		Expiring:         Expiring(items, now),
		WarrantyExpiring: WarrantyExpiring(items, now),
	}
}

// Counts returns the number of items in each group
func (r Report) Counts() Counts {
	return Counts{
		LowStock:         len(r.LowStock),
		Expiring:         len(r.Expiring),
		WarrantyExpiring: len(r.WarrantyExpiring),
	}
}

// Empty reports whether no item needs attention
func (r Report) Empty() bool {
	return len(r.LowStock) == 0 && len(r.Expiring) == 0 && len(r.WarrantyExpiring) == 0
}

// Status is the single highlight shown for an item
type Status int

const (
	StatusOK Status = iota
	StatusExpiringSoon
	StatusLowStock
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExpiringSoon:
		return "expiring_soon"
	case StatusLowStock:
		return "low_stock"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify picks the most urgent status of item at now.
// Expired outranks low stock, which outranks expiring soon.
func Classify(item domain.InventoryItem, now time.Time) Status {
	switch {
	case item.IsExpired(now):
		return StatusExpired
	case item.IsLowStock():
		return StatusLowStock
	case IsExpiring(item, now):
		return StatusExpiringSoon
	default:
		return StatusOK
	}
}
