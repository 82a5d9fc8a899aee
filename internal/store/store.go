package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
	"github.com/DaDevFox/task-systems/household-core/internal/events"
)

const (
	DefaultDBFile = "household.db"
)

// ErrNotOpen is returned by operations on a closed or never opened store.
var ErrNotOpen = errors.New("database not opened")

// connection pragmas are applied by the driver to every pooled connection
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Options configures Open.
type Options struct {
	Path          string
	TargetVersion int
	Logger        *logrus.Logger
	Feed          *events.PubSub
}

// Store is the SQLite-backed home of categories, inventory items and shopping
// list entries. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	feed   *events.PubSub
	logger *logrus.Logger
}

// Open opens (creating if needed) the database at opts.Path and migrates it to
// opts.TargetVersion, which defaults to LatestVersion.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("database path is required")
	}
	if opts.TargetVersion == 0 {
		opts.TargetVersion = LatestVersion
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Feed == nil {
		opts.Feed = events.NewPubSub(opts.Logger)
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create parent directory for database: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(opts.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   opts.Path,
		feed:   opts.Feed,
		logger: opts.Logger,
	}

	if err := s.migrate(ctx, opts.TargetVersion); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"path":           opts.Path,
		"schema_version": opts.TargetVersion,
	}).Debug("store opened")

	return s, nil
}

func dsn(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	return path + "?" + strings.Join(params, "&")
}

// Close drops every change subscription on the store's tables and closes the
// database connection
func (s *Store) Close() error {
	for _, table := range Tables {
		s.feed.Clear(table.eventType())
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the handle for read queries. Writes must go through Write.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the highest applied schema version, or 0 for an empty database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Write runs fn in a transaction. Once committed, a change event is published
// for every listed table.
func (s *Store) Write(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error, tables ...Table) error {
	if s.db == nil {
		return ErrNotOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}

	for _, table := range tables {
		s.feed.Publish(ctx, events.Event{
			Type: table.eventType(),
			Data: map[string]interface{}{"table": string(table)},
		})
	}
	return nil
}

// Subscribe calls onChange after every committed write touching one of tables.
// onChange must not block. The returned function cancels the subscription.
func (s *Store) Subscribe(onChange func(), tables ...Table) func() {
	unsubscribers := make([]func(), 0, len(tables))
	for _, table := range tables {
		unsubscribers = append(unsubscribers, s.feed.Subscribe(table.eventType(), func(ctx context.Context, event events.Event) error {
			onChange()
			return nil
		}))
	}

	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
		for _, table := range tables {
			s.logger.WithFields(logrus.Fields{
				"table":       string(table),
				"subscribers": s.Subscribers(table),
			}).Debug("change subscription cancelled")
		}
	}
}

// Subscribers returns the number of live change subscriptions on table
func (s *Store) Subscribers(table Table) int {
	return s.feed.GetHandlerCount(table.eventType())
}

// classify marks SQLite constraint failures with domain.ErrConstraint
func classify(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", domain.ErrConstraint, err)
	}
	return err
}

// CheckExists verifies if the datastore file exists at the given path.
func CheckExists(dbPath string) (bool, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check store existence: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("datastore path is a directory, expected file: %s", dbPath)
	}
	return true, nil
}

// CheckState inspects the database at dbPath without modifying it and returns
// its state together with the applied schema version.
func CheckState(ctx context.Context, dbPath string) (State, int, error) {
	exists, err := CheckExists(dbPath)
	if err != nil {
		return StateMissing, 0, err
	}
	if !exists {
		return StateMissing, 0, nil
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return StateUninitialized, 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'`).Scan(&count)
	if err != nil {
		return StateUninitialized, 0, fmt.Errorf("failed to check schema_migrations table: %w", err)
	}
	if count == 0 {
		return StateUninitialized, 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return StateUninitialized, 0, fmt.Errorf("failed to query schema version: %w", err)
	}

	switch {
	case version == 0:
		return StateUninitialized, 0, nil
	case version < LatestVersion:
		return StateOutdated, version, nil
	case version > LatestVersion:
		return StateTooNew, version, nil
	default:
		return StateReady, version, nil
	}
}
