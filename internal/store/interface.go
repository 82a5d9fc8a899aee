package store

import (
	"github.com/DaDevFox/task-systems/household-core/internal/events"
)

// State represents the initialization state of the datastore.
type State int

const (
	StateMissing       State = iota // File doesn't exist
	StateUninitialized              // File exists but no schema
	StateOutdated                   // Schema exists but has pending migrations
	StateTooNew                     // Schema was written by a newer build
	StateReady                      // Initialized and at the latest version
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateUninitialized:
		return "uninitialized"
	case StateOutdated:
		return "outdated"
	case StateTooNew:
		return "too_new"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Table names a persisted table whose changes can be observed.
type Table string

const (
	TableCategories   Table = "categories"
	TableItems        Table = "inventory_items"
	TableShoppingList Table = "shopping_list_items"
)

// Tables lists every observable table
var Tables = []Table{TableCategories, TableItems, TableShoppingList}

// cascades lists the tables whose rows are deleted along with rows of the key table.
var cascades = map[Table][]Table{
	TableCategories: {TableItems},
	TableItems:      {TableShoppingList},
}

// CascadeFrom returns table followed by every table reachable through ON DELETE CASCADE.
func CascadeFrom(table Table) []Table {
	result := []Table{table}
	for i := 0; i < len(result); i++ {
		result = append(result, cascades[result[i]]...)
	}
	return result
}

func (t Table) eventType() events.EventType {
	switch t {
	case TableCategories:
		return events.EventCategoriesChanged
	case TableItems:
		return events.EventItemsChanged
	case TableShoppingList:
		return events.EventShoppingChanged
	default:
		return events.EventType(string(t) + ".changed")
	}
}
