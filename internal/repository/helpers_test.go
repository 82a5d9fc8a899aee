package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

const (
	streamTimeout = 2 * time.Second
	testItemName  = "Test Item"
)

func createTestRepositories(t *testing.T) *Repositories {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	st, err := store.Open(context.Background(), store.Options{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Logger: logger,
	})
	require.NoError(t, err, "Failed to open store")
	t.Cleanup(func() { st.Close() })

	return New(st)
}

func mustInsertCategory(t *testing.T, repos *Repositories, name string) int64 {
	t.Helper()
	id, err := repos.Categories.Insert(context.Background(), &domain.Category{Name: name})
	require.NoError(t, err)
	return id
}

func mustInsertItem(t *testing.T, repos *Repositories, item domain.InventoryItem) int64 {
	t.Helper()
	id, err := repos.Items.Insert(context.Background(), &item)
	require.NoError(t, err)
	return id
}

// waitFor drains s until a snapshot satisfies match, failing after streamTimeout.
func waitFor[T any](t *testing.T, s *Stream[T], match func([]T) bool) []T {
	t.Helper()
	deadline := time.After(streamTimeout)
	for {
		select {
		case rows, ok := <-s.C():
			require.True(t, ok, "stream closed early: %v", s.Err())
			if match(rows) {
				return rows
			}
		case <-deadline:
			t.Fatalf("timed out waiting for stream snapshot")
			return nil
		}
	}
}

func names(items []domain.InventoryItem) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, item.Name)
	}
	return result
}

func timeAt(t time.Time) *time.Time {
	return &t
}
