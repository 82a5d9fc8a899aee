package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

const (
	shoppingColumns = `id, inventory_item_id, name, quantity, priority, is_completed, created_at, notes`
	shoppingOrder   = `ORDER BY priority DESC, created_at ASC, id ASC`
)

// ShoppingListRepository persists shopping list entries
type ShoppingListRepository struct {
	store *store.Store
	now   func() time.Time
}

// NewShoppingListRepository creates a shopping list repository over st
func NewShoppingListRepository(st *store.Store) *ShoppingListRepository {
	return &ShoppingListRepository{store: st, now: time.Now}
}

// List streams every entry, highest priority first and oldest first within a priority
func (r *ShoppingListRepository) List(ctx context.Context) *Stream[domain.ShoppingListItem] {
	return newStream(ctx, r.store, r.All, store.TableShoppingList)
}

// Pending streams entries that are not completed, in List order
func (r *ShoppingListRepository) Pending(ctx context.Context) *Stream[domain.ShoppingListItem] {
	return newStream(ctx, r.store, func(ctx context.Context) ([]domain.ShoppingListItem, error) {
		return r.query(ctx, `WHERE is_completed = 0 `+shoppingOrder)
	}, store.TableShoppingList)
}

// All returns a snapshot of every entry in List order
func (r *ShoppingListRepository) All(ctx context.Context) ([]domain.ShoppingListItem, error) {
	return r.query(ctx, shoppingOrder)
}

// Get retrieves an entry by ID, returning nil when it does not exist
func (r *ShoppingListRepository) Get(ctx context.Context, id int64) (*domain.ShoppingListItem, error) {
	row := r.store.DB().QueryRowContext(ctx, `SELECT `+shoppingColumns+` FROM shopping_list_items WHERE id = ?`, id)
	entry, err := scanShoppingItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Insert adds an entry, or replaces the row with the same ID when one is set.
// A zero priority is stored as Low.
func (r *ShoppingListRepository) Insert(ctx context.Context, entry *domain.ShoppingListItem) (int64, error) {
	stamped := *entry
	if stamped.CreatedAt.IsZero() {
		stamped.CreatedAt = r.now()
	}
	if stamped.Priority == 0 {
		stamped.Priority = domain.PriorityLow
	}
	if err := checkPriority(stamped.Priority); err != nil {
		return 0, err
	}

	id := stamped.ID
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO shopping_list_items (inventory_item_id, name, quantity, priority, is_completed, created_at, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				shoppingArgs(&stamped)...)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO shopping_list_items (id, inventory_item_id, name, quantity, priority, is_completed, created_at, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				inventory_item_id = excluded.inventory_item_id,
				name = excluded.name,
				quantity = excluded.quantity,
				priority = excluded.priority,
				is_completed = excluded.is_completed,
				created_at = excluded.created_at,
				notes = excluded.notes`,
			append([]any{id}, shoppingArgs(&stamped)...)...)
		return err
	}, store.TableShoppingList)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list item: %w", err)
	}

	stamped.ID = id
	*entry = stamped
	return id, nil
}

// Update overwrites an existing entry; a missing row is left alone
func (r *ShoppingListRepository) Update(ctx context.Context, entry *domain.ShoppingListItem) error {
	if err := checkPriority(entry.Priority); err != nil {
		return err
	}

	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE shopping_list_items SET inventory_item_id = ?, name = ?, quantity = ?, priority = ?,
				is_completed = ?, created_at = ?, notes = ?
			WHERE id = ?`,
			append(shoppingArgs(entry), entry.ID)...)
		return err
	}, store.TableShoppingList)
	if err != nil {
		return fmt.Errorf("failed to update shopping list item: %w", err)
	}
	return nil
}

func checkPriority(p domain.Priority) error {
	if !p.Valid() {
		return fmt.Errorf("invalid shopping list priority %d: %w", int(p), domain.ErrConstraint)
	}
	return nil
}

// SetCompletion marks one entry completed or pending
func (r *ShoppingListRepository) SetCompletion(ctx context.Context, id int64, completed bool) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE shopping_list_items SET is_completed = ? WHERE id = ?`, completed, id)
		return err
	}, store.TableShoppingList)
	if err != nil {
		return fmt.Errorf("failed to update shopping list item completion: %w", err)
	}
	return nil
}

// Delete removes the entry
func (r *ShoppingListRepository) Delete(ctx context.Context, entry *domain.ShoppingListItem) error {
	return r.DeleteByID(ctx, entry.ID)
}

// DeleteByID removes the entry with id; a missing row is not an error
func (r *ShoppingListRepository) DeleteByID(ctx context.Context, id int64) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE id = ?`, id)
		return err
	}, store.TableShoppingList)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list item: %w", err)
	}
	return nil
}

// DeleteCompleted removes every completed entry and returns how many were removed
func (r *ShoppingListRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	var removed int64
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE is_completed = 1`)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	}, store.TableShoppingList)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed shopping list items: %w", err)
	}
	return removed, nil
}

func (r *ShoppingListRepository) query(ctx context.Context, clause string, args ...any) ([]domain.ShoppingListItem, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT `+shoppingColumns+` FROM shopping_list_items `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping list items: %w", err)
	}
	defer rows.Close()

	entries := []domain.ShoppingListItem{}
	for rows.Next() {
		entry, err := scanShoppingItem(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func shoppingArgs(entry *domain.ShoppingListItem) []any {
	return []any{
		nullableInt64(entry.InventoryItemID),
		entry.Name,
		entry.Quantity,
		int(entry.Priority),
		entry.IsCompleted,
		toMillis(entry.CreatedAt),
		entry.Notes,
	}
}

func scanShoppingItem(row rowScanner) (domain.ShoppingListItem, error) {
	var (
		entry     domain.ShoppingListItem
		itemID    sql.NullInt64
		priority  int
		createdAt int64
	)
	err := row.Scan(&entry.ID, &itemID, &entry.Name, &entry.Quantity, &priority,
		&entry.IsCompleted, &createdAt, &entry.Notes)
	if err != nil {
		return domain.ShoppingListItem{}, err
	}
	entry.InventoryItemID = int64Ptr(itemID)
	entry.Priority = domain.Priority(priority)
	entry.CreatedAt = fromMillis(createdAt)
	return entry, nil
}
