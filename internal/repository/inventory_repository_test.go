package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
)

func TestInventoryRepositoryInsertRoundTrip(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	base := time.UnixMilli(1_700_000_000_000)
	image := "images/fridge.jpg"
	barcode := "0123456789012"
	item := &domain.InventoryItem{
		Name:           "Refrigerator",
		Description:    "Kitchen refrigerator",
		CategoryID:     categoryID,
		Quantity:       1,
		MinStockLevel:  0,
		WarrantyDate:   timeAt(base.Add(365 * 24 * time.Hour)),
		Price:          decimal.RequireFromString("1299.99"),
		ImagePath:      &image,
		Barcode:        &barcode,
		Location:       "Kitchen",
		Notes:          "Extended warranty",
		CreatedAt:      base,
		UpdatedAt:      base,
		ExpirationDate: nil,
	}

	id, err := repos.Items.Insert(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)

	got, err := repos.Items.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	opts := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(*item, *got, opts); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}
}

func TestInventoryRepositoryUnknownCategory(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()

	orphan := &domain.InventoryItem{Name: "Orphan", CategoryID: 42, Quantity: 1}
	_, err := repos.Items.Insert(ctx, orphan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConstraint), "expected constraint error, got %v", err)
	assert.Zero(t, orphan.ID)
	assert.True(t, orphan.CreatedAt.IsZero(), "failed insert must not stamp created_at")
	assert.True(t, orphan.UpdatedAt.IsZero(), "failed insert must not stamp updated_at")

	items, err := repos.Items.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestInventoryRepositoryUpsertIsIdempotent(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	item := domain.InventoryItem{ID: 10, Name: "Apple", CategoryID: categoryID, Quantity: 6, MinStockLevel: 2}
	for i := 0; i < 2; i++ {
		c := item
		_, err := repos.Items.Insert(ctx, &c)
		require.NoError(t, err)
	}

	all, err := repos.Items.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(10), all[0].ID)
	assert.Equal(t, 6, all[0].Quantity)
}

func TestInventoryRepositoryUpsertKeepsShoppingEntries(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	milk := mustInsertItem(t, repos, domain.InventoryItem{Name: "Milk", CategoryID: categoryID, Quantity: 1})
	_, err := repos.Shopping.Insert(ctx, &domain.ShoppingListItem{InventoryItemID: &milk, Name: "Milk", Quantity: 2})
	require.NoError(t, err)

	_, err = repos.Items.Insert(ctx, &domain.InventoryItem{ID: milk, Name: "Milk", CategoryID: categoryID, Quantity: 3})
	require.NoError(t, err)

	entries, err := repos.Shopping.All(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInventoryRepositoryUpdateQuantityStampsTime(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	created := time.UnixMilli(1_700_000_000_000)
	id := mustInsertItem(t, repos, domain.InventoryItem{
		Name: "Milk", CategoryID: categoryID, Quantity: 2, MinStockLevel: 1,
		CreatedAt: created, UpdatedAt: created,
	})

	later := created.Add(time.Hour)
	repos.Items.now = func() time.Time { return later }
	require.NoError(t, repos.Items.UpdateQuantity(ctx, id, 5))

	got, err := repos.Items.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, later.UnixMilli(), got.UpdatedAt.UnixMilli())
	assert.Equal(t, created.UnixMilli(), got.CreatedAt.UnixMilli())

	// a clock behind the stored stamp never moves it backwards
	repos.Items.now = func() time.Time { return created }
	require.NoError(t, repos.Items.UpdateQuantity(ctx, id, 4))

	got, err = repos.Items.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, later.UnixMilli(), got.UpdatedAt.UnixMilli())

	// unknown ids are ignored
	require.NoError(t, repos.Items.UpdateQuantity(ctx, id+100, 1))
}

func TestInventoryRepositoryExpiringQueries(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	now := time.UnixMilli(1_700_000_000_000)
	day := 24 * time.Hour
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Milk", CategoryID: categoryID, Quantity: 1, ExpirationDate: timeAt(now.Add(5 * day))})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Juice", CategoryID: categoryID, Quantity: 1, ExpirationDate: timeAt(now.Add(10 * day))})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Yogurt", CategoryID: categoryID, Quantity: 1, ExpirationDate: timeAt(now.Add(-day))})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Fridge", CategoryID: categoryID, Quantity: 1, WarrantyDate: timeAt(now.Add(20 * day))})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Oven", CategoryID: categoryID, Quantity: 1, WarrantyDate: timeAt(now.Add(400 * day))})

	expiring, err := repos.Items.Expiring(ctx, now.Add(7*day))
	require.NoError(t, err)
	assert.Equal(t, []string{"Yogurt", "Milk"}, names(expiring))

	warranty, err := repos.Items.WarrantyExpiring(ctx, now.Add(30*day))
	require.NoError(t, err)
	assert.Equal(t, []string{"Fridge"}, names(warranty))
}

func TestInventoryRepositorySearch(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	kitchen := mustInsertCategory(t, repos, "Kitchen")
	garage := mustInsertCategory(t, repos, "Garage")

	now := time.UnixMilli(1_700_000_000_000)
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Apple", CategoryID: kitchen, Quantity: 6, MinStockLevel: 2, ExpirationDate: timeAt(now.Add(7 * 24 * time.Hour))})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Milk", CategoryID: kitchen, Quantity: 1, MinStockLevel: 1})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Dishes", CategoryID: kitchen, Quantity: 12, MinStockLevel: 6})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Screws", CategoryID: garage, Quantity: 0, MinStockLevel: 10})

	tests := []struct {
		name      string
		filters   ListFilters
		wantNames []string
		wantTotal int
	}{
		{"no filters", ListFilters{}, []string{"Apple", "Dishes", "Milk", "Screws"}, 4},
		{"by category", ListFilters{CategoryID: kitchen}, []string{"Apple", "Dishes", "Milk"}, 3},
		{"low stock only", ListFilters{LowStockOnly: true}, []string{"Milk", "Screws"}, 2},
		{"category and low stock", ListFilters{CategoryID: kitchen, LowStockOnly: true}, []string{"Milk"}, 1},
		{"expiring before", ListFilters{ExpiringBefore: timeAt(now.Add(8 * 24 * time.Hour))}, []string{"Apple"}, 1},
		{"first page", ListFilters{Limit: 2}, []string{"Apple", "Dishes"}, 4},
		{"second page", ListFilters{Limit: 2, Offset: 2}, []string{"Milk", "Screws"}, 4},
		{"offset without limit", ListFilters{Offset: 3}, []string{"Screws"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repos.Items.Search(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNames, names(items))
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestInventoryRepositoryDeleteCascadesToShoppingList(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	item := &domain.InventoryItem{Name: "Milk", CategoryID: categoryID, Quantity: 1}
	_, err := repos.Items.Insert(ctx, item)
	require.NoError(t, err)
	_, err = repos.Shopping.Insert(ctx, &domain.ShoppingListItem{InventoryItemID: &item.ID, Name: "Milk", Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, repos.Items.Delete(ctx, item))

	got, err := repos.Items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	entries, err := repos.Shopping.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInventoryRepositoryLowStockStream(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")

	milk := mustInsertItem(t, repos, domain.InventoryItem{Name: "Milk", CategoryID: categoryID, Quantity: 1, MinStockLevel: 1})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Apple", CategoryID: categoryID, Quantity: 6, MinStockLevel: 2})

	stream := repos.Items.LowStock(ctx)
	defer stream.Cancel()

	first := waitFor(t, stream, func([]domain.InventoryItem) bool { return true })
	assert.Equal(t, []string{"Milk"}, names(first))

	require.NoError(t, repos.Items.UpdateQuantity(ctx, milk, 5))
	waitFor(t, stream, func(rows []domain.InventoryItem) bool { return len(rows) == 0 })

	require.NoError(t, repos.Items.UpdateQuantity(ctx, milk, 0))
	again := waitFor(t, stream, func(rows []domain.InventoryItem) bool { return len(rows) == 1 })
	assert.Equal(t, milk, again[0].ID)
}

func TestInventoryRepositoryListByCategoryStream(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	kitchen := mustInsertCategory(t, repos, "Kitchen")
	garage := mustInsertCategory(t, repos, "Garage")

	mustInsertItem(t, repos, domain.InventoryItem{Name: "Milk", CategoryID: kitchen, Quantity: 1})
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Hammer", CategoryID: garage, Quantity: 1})

	stream := repos.Items.ListByCategory(ctx, kitchen)
	defer stream.Cancel()

	first := waitFor(t, stream, func([]domain.InventoryItem) bool { return true })
	assert.Equal(t, []string{"Milk"}, names(first))

	mustInsertItem(t, repos, domain.InventoryItem{Name: "Eggs", CategoryID: kitchen, Quantity: 12})
	next := waitFor(t, stream, func(rows []domain.InventoryItem) bool { return len(rows) == 2 })
	assert.Equal(t, []string{"Eggs", "Milk"}, names(next))
}

func TestInventoryRepositoryStreamSeesCategoryCascade(t *testing.T) {
	repos := createTestRepositories(t)
	ctx := context.Background()
	categoryID := mustInsertCategory(t, repos, "Kitchen")
	mustInsertItem(t, repos, domain.InventoryItem{Name: "Milk", CategoryID: categoryID, Quantity: 1})

	stream := repos.Items.List(ctx)
	defer stream.Cancel()

	waitFor(t, stream, func(rows []domain.InventoryItem) bool { return len(rows) == 1 })
	require.NoError(t, repos.Categories.DeleteByID(ctx, categoryID))
	waitFor(t, stream, func(rows []domain.InventoryItem) bool { return len(rows) == 0 })
}
