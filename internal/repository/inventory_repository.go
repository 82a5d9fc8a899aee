package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

const itemColumns = `id, name, description, category_id, quantity, min_stock_level,
	expiration_date, warranty_date, price, image_path, barcode, location, notes,
	created_at, updated_at`

// InventoryRepository persists inventory items
type InventoryRepository struct {
	store *store.Store
	now   func() time.Time
}

// NewInventoryRepository creates an inventory repository over st
func NewInventoryRepository(st *store.Store) *InventoryRepository {
	return &InventoryRepository{store: st, now: time.Now}
}

// List streams all items ordered by name
func (r *InventoryRepository) List(ctx context.Context) *Stream[domain.InventoryItem] {
	return newStream(ctx, r.store, r.All, store.TableItems)
}

// ListByCategory streams the items of one category ordered by name
func (r *InventoryRepository) ListByCategory(ctx context.Context, categoryID int64) *Stream[domain.InventoryItem] {
	return newStream(ctx, r.store, func(ctx context.Context) ([]domain.InventoryItem, error) {
		return r.query(ctx, `WHERE category_id = ? ORDER BY name ASC`, categoryID)
	}, store.TableItems)
}

// LowStock streams items whose quantity is at or below their minimum stock level
func (r *InventoryRepository) LowStock(ctx context.Context) *Stream[domain.InventoryItem] {
	return newStream(ctx, r.store, r.LowStockSnapshot, store.TableItems)
}

// All returns a snapshot of every item ordered by name
func (r *InventoryRepository) All(ctx context.Context) ([]domain.InventoryItem, error) {
	return r.query(ctx, `ORDER BY name ASC`)
}

// LowStockSnapshot returns the current low stock items ordered by name
func (r *InventoryRepository) LowStockSnapshot(ctx context.Context) ([]domain.InventoryItem, error) {
	return r.query(ctx, `WHERE quantity <= min_stock_level ORDER BY name ASC`)
}

// Expiring returns items with an expiration date on or before the given time
func (r *InventoryRepository) Expiring(ctx context.Context, before time.Time) ([]domain.InventoryItem, error) {
	return r.query(ctx, `WHERE expiration_date IS NOT NULL AND expiration_date <= ? ORDER BY expiration_date ASC, name ASC`, toMillis(before))
}

// WarrantyExpiring returns items whose warranty ends on or before the given time
func (r *InventoryRepository) WarrantyExpiring(ctx context.Context, before time.Time) ([]domain.InventoryItem, error) {
	return r.query(ctx, `WHERE warranty_date IS NOT NULL AND warranty_date <= ? ORDER BY warranty_date ASC, name ASC`, toMillis(before))
}

// Search returns one page of items matching filters together with the total number of matches
func (r *InventoryRepository) Search(ctx context.Context, filters ListFilters) ([]domain.InventoryItem, int, error) {
	where, args := buildSearchWhere(filters)

	var total int
	err := r.store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	clause := where + ` ORDER BY name ASC`
	if filters.Limit > 0 {
		clause += ` LIMIT ? OFFSET ?`
		args = append(args, filters.Limit, filters.Offset)
	} else if filters.Offset > 0 {
		clause += ` LIMIT -1 OFFSET ?`
		args = append(args, filters.Offset)
	}

	items, err := r.query(ctx, clause, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func buildSearchWhere(filters ListFilters) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filters.CategoryID != 0 {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filters.CategoryID)
	}
	if filters.LowStockOnly {
		conditions = append(conditions, "quantity <= min_stock_level")
	}
	if filters.ExpiringBefore != nil {
		conditions = append(conditions, "expiration_date IS NOT NULL AND expiration_date <= ?")
		args = append(args, toMillis(*filters.ExpiringBefore))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Get retrieves an item by ID, returning nil when it does not exist
func (r *InventoryRepository) Get(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	row := r.store.DB().QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Insert adds an item, or replaces the row with the same ID when one is set.
// Shopping list entries linked to a replaced item are kept.
func (r *InventoryRepository) Insert(ctx context.Context, item *domain.InventoryItem) (int64, error) {
	stamped := *item
	if stamped.CreatedAt.IsZero() {
		stamped.CreatedAt = r.now()
	}
	if stamped.UpdatedAt.IsZero() {
		stamped.UpdatedAt = stamped.CreatedAt
	}

	id := stamped.ID
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO inventory_items (name, description, category_id, quantity, min_stock_level,
					expiration_date, warranty_date, price, image_path, barcode, location, notes,
					created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				itemArgs(&stamped)...)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_items (id, name, description, category_id, quantity, min_stock_level,
				expiration_date, warranty_date, price, image_path, barcode, location, notes,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				category_id = excluded.category_id,
				quantity = excluded.quantity,
				min_stock_level = excluded.min_stock_level,
				expiration_date = excluded.expiration_date,
				warranty_date = excluded.warranty_date,
				price = excluded.price,
				image_path = excluded.image_path,
				barcode = excluded.barcode,
				location = excluded.location,
				notes = excluded.notes,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at`,
			append([]any{id}, itemArgs(&stamped)...)...)
		return err
	}, store.TableItems)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}

	stamped.ID = id
	*item = stamped
	return id, nil
}

// Update overwrites an existing item; a missing row is left alone
func (r *InventoryRepository) Update(ctx context.Context, item *domain.InventoryItem) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE inventory_items SET name = ?, description = ?, category_id = ?, quantity = ?,
				min_stock_level = ?, expiration_date = ?, warranty_date = ?, price = ?,
				image_path = ?, barcode = ?, location = ?, notes = ?, created_at = ?, updated_at = ?
			WHERE id = ?`,
			append(itemArgs(item), item.ID)...)
		return err
	}, store.TableItems)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of one item and stamps its update time.
// The stamp never moves backwards.
func (r *InventoryRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE inventory_items SET quantity = ?, updated_at = MAX(updated_at, ?) WHERE id = ?`,
			quantity, toMillis(r.now()), id)
		return err
	}, store.TableItems)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	return nil
}

// Delete removes the item and, by cascade, its shopping list entries
func (r *InventoryRepository) Delete(ctx context.Context, item *domain.InventoryItem) error {
	return r.DeleteByID(ctx, item.ID)
}

// DeleteByID removes the item with id; a missing row is not an error
func (r *InventoryRepository) DeleteByID(ctx context.Context, id int64) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
		return err
	}, store.CascadeFrom(store.TableItems)...)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *InventoryRepository) query(ctx context.Context, clause string, args ...any) ([]domain.InventoryItem, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []domain.InventoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func itemArgs(item *domain.InventoryItem) []any {
	return []any{
		item.Name,
		item.Description,
		item.CategoryID,
		item.Quantity,
		item.MinStockLevel,
		nullableMillis(item.ExpirationDate),
		nullableMillis(item.WarrantyDate),
		item.Price.String(),
		nullableString(item.ImagePath),
		nullableString(item.Barcode),
		item.Location,
		item.Notes,
		toMillis(item.CreatedAt),
		toMillis(item.UpdatedAt),
	}
}

func scanItem(row rowScanner) (domain.InventoryItem, error) {
	var (
		item                 domain.InventoryItem
		expiration, warranty sql.NullInt64
		price                string
		image, barcode       sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID, &item.Quantity,
		&item.MinStockLevel, &expiration, &warranty, &price, &image, &barcode,
		&item.Location, &item.Notes, &createdAt, &updatedAt)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	item.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("invalid price %q for item %d: %w", price, item.ID, err)
	}
	item.ExpirationDate = timePtr(expiration)
	item.WarrantyDate = timePtr(warranty)
	item.ImagePath = stringPtr(image)
	item.Barcode = stringPtr(barcode)
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}
