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

const categoryColumns = `id, name, description, created_at`

// CategoryRepository persists categories. Deleting a category removes its items.
type CategoryRepository struct {
	store *store.Store
	now   func() time.Time
}

// NewCategoryRepository creates a category repository over st
func NewCategoryRepository(st *store.Store) *CategoryRepository {
	return &CategoryRepository{store: st, now: time.Now}
}

// List streams all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) *Stream[domain.Category] {
	return newStream(ctx, r.store, r.All, store.TableCategories)
}

// All returns a snapshot of all categories ordered by name
func (r *CategoryRepository) All(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.store.DB().QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Get retrieves a category by ID, returning nil when it does not exist
func (r *CategoryRepository) Get(ctx context.Context, id int64) (*domain.Category, error) {
	row := r.store.DB().QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Count returns the number of stored categories
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}

// Insert adds a category, or replaces the row with the same ID when one is set
func (r *CategoryRepository) Insert(ctx context.Context, c *domain.Category) (int64, error) {
	stamped := *c
	if stamped.CreatedAt.IsZero() {
		stamped.CreatedAt = r.now()
	}

	id := stamped.ID
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO categories (name, description, created_at) VALUES (?, ?, ?)`,
				stamped.Name, stamped.Description, toMillis(stamped.CreatedAt))
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, description, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				created_at = excluded.created_at`,
			id, stamped.Name, stamped.Description, toMillis(stamped.CreatedAt))
		return err
	}, store.TableCategories)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}

	stamped.ID = id
	*c = stamped
	return id, nil
}

// Update overwrites an existing category; a missing row is left alone
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, description = ?, created_at = ? WHERE id = ?`,
			c.Name, c.Description, toMillis(c.CreatedAt), c.ID)
		return err
	}, store.TableCategories)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

// Delete removes the category and, by cascade, its items
func (r *CategoryRepository) Delete(ctx context.Context, c *domain.Category) error {
	return r.DeleteByID(ctx, c.ID)
}

// DeleteByID removes the category with id; a missing row is not an error
func (r *CategoryRepository) DeleteByID(ctx context.Context, id int64) error {
	err := r.store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		return err
	}, store.CascadeFrom(store.TableCategories)...)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var (
		c         domain.Category
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &createdAt); err != nil {
		return domain.Category{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}
