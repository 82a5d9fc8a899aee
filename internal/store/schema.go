package store

// LatestVersion is the schema version this build writes.
const LatestVersion = 2

const createSchemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// schemaV1 is the original layout. Later versions are reached through migrations only.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    quantity INTEGER NOT NULL,
    min_stock_level INTEGER NOT NULL DEFAULT 0,
    expiration_date INTEGER,
    warranty_date INTEGER,
    price TEXT NOT NULL DEFAULT '0',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_category_id ON inventory_items(category_id);`,
	`CREATE TABLE IF NOT EXISTS shopping_list_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    inventory_item_id INTEGER REFERENCES inventory_items(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    priority INTEGER NOT NULL DEFAULT 1,
    is_completed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    notes TEXT NOT NULL DEFAULT ''
);`,
	`CREATE INDEX IF NOT EXISTS idx_shopping_list_items_inventory_item_id ON shopping_list_items(inventory_item_id);`,
}
