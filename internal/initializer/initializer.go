package initializer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
)

const day = 24 * time.Hour

// CategoryWriter is the part of the category repository used for seeding
type CategoryWriter interface {
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, c *domain.Category) (int64, error)
}

// ItemWriter inserts inventory items
type ItemWriter interface {
	Insert(ctx context.Context, item *domain.InventoryItem) (int64, error)
}

// ShoppingWriter inserts shopping list entries
type ShoppingWriter interface {
	Insert(ctx context.Context, entry *domain.ShoppingListItem) (int64, error)
}

// Result reports what a Run wrote
type Result struct {
	Seeded        bool
	Categories    int
	Items         int
	ShoppingItems int
}

// Initializer populates an empty store with the starter household data.
// The emptiness check and the inserts are separate writes, so two concurrent
// runs against an empty store may both seed.
type Initializer struct {
	categories CategoryWriter
	items      ItemWriter
	shopping   ShoppingWriter
	logger     *logrus.Logger
}

// New creates an initializer writing through the given repositories
func New(categories CategoryWriter, items ItemWriter, shopping ShoppingWriter, logger *logrus.Logger) *Initializer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Initializer{
		categories: categories,
		items:      items,
		shopping:   shopping,
		logger:     logger,
	}
}

// Run seeds the store unless at least one category already exists.
// Dates are relative to now.
func (i *Initializer) Run(ctx context.Context, now time.Time) (Result, error) {
	existing, err := i.categories.Count(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "count categories")
	}
	if existing > 0 {
		i.logger.WithField("categories", existing).Debug("store already populated, skipping seed")
		return Result{}, nil
	}

	result := Result{Seeded: true}

	categoryIDs := make(map[string]int64, len(seedCategories))
	for _, seed := range seedCategories {
		category := &domain.Category{Name: seed.name, Description: seed.description, CreatedAt: now}
		id, err := i.categories.Insert(ctx, category)
		if err != nil {
			return result, errors.Wrapf(err, "seed category %s", seed.name)
		}
		categoryIDs[seed.name] = id
		result.Categories++
	}

	for _, seed := range seedItems {
		item := seed.build(now, categoryIDs[seed.category])
		if _, err := i.items.Insert(ctx, item); err != nil {
			return result, errors.Wrapf(err, "seed item %s", seed.name)
		}
		result.Items++
	}

	for _, seed := range seedShopping {
		entry := &domain.ShoppingListItem{
			Name:        seed.name,
			Quantity:    seed.quantity,
			Priority:    seed.priority,
			IsCompleted: seed.completed,
			Notes:       seed.notes,
			CreatedAt:   now,
		}
		if _, err := i.shopping.Insert(ctx, entry); err != nil {
			return result, errors.Wrapf(err, "seed shopping list item %s", seed.name)
		}
		result.ShoppingItems++
	}

	i.logger.WithFields(logrus.Fields{
		"categories":     result.Categories,
		"items":          result.Items,
		"shopping_items": result.ShoppingItems,
	}).Info("starter data seeded")

	return result, nil
}

type categorySeed struct {
	name        string
	description string
}

var seedCategories = []categorySeed{
	{"Kitchen", "Kitchen items and appliances"},
	{"Bedroom", "Bedroom essentials"},
	{"Bathroom", "Bathroom supplies"},
	{"Living Room", "Living room furniture and items"},
	{"Garage", "Tools and garage equipment"},
	{"Store Room", "Storage and miscellaneous items"},
}

type itemSeed struct {
	name          string
	description   string
	category      string
	quantity      int
	minStockLevel int
	expiresIn     time.Duration
	warrantyFor   time.Duration
	price         string
}

func (s itemSeed) build(now time.Time, categoryID int64) *domain.InventoryItem {
	item := &domain.InventoryItem{
		Name:          s.name,
		Description:   s.description,
		CategoryID:    categoryID,
		Quantity:      s.quantity,
		MinStockLevel: s.minStockLevel,
		Price:         decimal.RequireFromString(s.price),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.expiresIn > 0 {
		expires := now.Add(s.expiresIn)
		item.ExpirationDate = &expires
	}
	if s.warrantyFor > 0 {
		warranty := now.Add(s.warrantyFor)
		item.WarrantyDate = &warranty
	}
	return item
}

var seedItems = []itemSeed{
	{name: "Apple", description: "Fresh red apples", category: "Kitchen", quantity: 12, minStockLevel: 5, expiresIn: 7 * day, price: "0.50"},
	{name: "Milk", description: "1 gallon whole milk", category: "Kitchen", quantity: 2, minStockLevel: 1, expiresIn: 5 * day, price: "3.99"},
	{name: "Juice", description: "Orange juice", category: "Kitchen", quantity: 3, minStockLevel: 2, expiresIn: 10 * day, price: "4.50"},
	{name: "Refrigerator", description: "Samsung smart refrigerator", category: "Kitchen", quantity: 1, minStockLevel: 1, warrantyFor: 365 * day, price: "1299.99"},
	{name: "Paper Towels", description: "Absorbent paper towels", category: "Bathroom", quantity: 6, minStockLevel: 3, price: "12.99"},
	{name: "Trash Can", description: "Small bathroom trash can", category: "Bathroom", quantity: 1, minStockLevel: 1, price: "25.99"},
	{name: "Dishes", description: "Ceramic dinner plates set", category: "Bedroom", quantity: 8, minStockLevel: 4, price: "45.99"},
}

type shoppingSeed struct {
	name      string
	quantity  int
	priority  domain.Priority
	notes     string
	completed bool
}

var seedShopping = []shoppingSeed{
	{name: "Paper Towels", quantity: 2, priority: domain.PriorityHigh, notes: "Running low, need to restock"},
	{name: "Refrigerator", quantity: 1, priority: domain.PriorityMedium, notes: "Check warranty status"},
	{name: "Trash Can", quantity: 1, priority: domain.PriorityLow},
	{name: "Dishes", quantity: 4, priority: domain.PriorityMedium, completed: true},
}
