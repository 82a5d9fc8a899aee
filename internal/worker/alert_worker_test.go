package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaDevFox/task-systems/household-core/internal/domain"
	"github.com/DaDevFox/task-systems/household-core/internal/initializer"
	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
	"github.com/DaDevFox/task-systems/household-core/internal/notify"
	"github.com/DaDevFox/task-systems/household-core/internal/repository"
	"github.com/DaDevFox/task-systems/household-core/internal/scheduler"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

type staticItems struct {
	items []domain.InventoryItem
	err   error
}

func (s staticItems) All(context.Context) ([]domain.InventoryItem, error) {
	return s.items, s.err
}

type sent struct {
	kind  notify.Kind
	count int
}

type recordingNotifier struct {
	sent   []sent
	failOn notify.Kind
}

func (r *recordingNotifier) Notify(ctx context.Context, kind notify.Kind, count int) error {
	if kind == r.failOn {
		return errors.New("channel unavailable")
	}
	r.sent = append(r.sent, sent{kind, count})
	return nil
}

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestRunNotifiesNonEmptyKindsInOrder(t *testing.T) {
	items := staticItems{items: []domain.InventoryItem{
		{Name: "Milk", Quantity: 1, MinStockLevel: 1, ExpirationDate: at(2 * 24 * time.Hour)},
		{Name: "Screws", Quantity: 0, MinStockLevel: 10},
		{Name: "Oven", Quantity: 1, WarrantyDate: at(300 * 24 * time.Hour)},
	}}
	notifier := &recordingNotifier{}

	w := NewAlertWorker(items, notifier, func() time.Time { return now }, quietLogger())
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, []sent{{notify.KindLowStock, 2}, {notify.KindExpiry, 1}}, notifier.sent)
}

func TestRunWithNothingToReport(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewAlertWorker(staticItems{}, notifier, func() time.Time { return now }, quietLogger())

	require.NoError(t, w.Run(context.Background()))
	assert.Empty(t, notifier.sent)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	items := staticItems{items: []domain.InventoryItem{
		{Name: "Milk", Quantity: 0, MinStockLevel: 1, ExpirationDate: at(24 * time.Hour), WarrantyDate: at(24 * time.Hour)},
	}}
	notifier := &recordingNotifier{failOn: notify.KindExpiry}

	w := NewAlertWorker(items, notifier, func() time.Time { return now }, quietLogger())
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify expiry")
	assert.Equal(t, []sent{{notify.KindLowStock, 1}}, notifier.sent, "earlier notifications stay delivered")
}

func TestRunReportsSnapshotFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewAlertWorker(staticItems{err: errors.New("database is locked")}, notifier, nil, quietLogger())

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load inventory snapshot")
	assert.Empty(t, notifier.sent)
}

func TestScheduledRunAgainstSeededStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := store.Open(ctx, store.Options{Path: filepath.Join(dir, "household.db"), Logger: quietLogger()})
	require.NoError(t, err)
	defer st.Close()
	repos := repository.New(st)

	_, err = initializer.New(repos.Categories, repos.Items, repos.Shopping, quietLogger()).Run(ctx, now)
	require.NoError(t, err)

	state, err := kvstore.New(filepath.Join(dir, "state"), kvstore.TypeBolt)
	require.NoError(t, err)
	defer state.Close()

	inbox := notify.NewInboxNotifier(state)
	w := NewAlertWorker(repos.Items, inbox, func() time.Time { return now }, quietLogger())

	sched := scheduler.NewTickerScheduler(state, quietLogger(), scheduler.WithClock(func() time.Time { return now }))
	require.NoError(t, sched.ScheduleOnce(ctx, BootJobName, w.Run))
	require.NoError(t, sched.ScheduleDaily(ctx, DailyJobName, DailyInterval, scheduler.KeepExisting, w.Run))
	assert.Equal(t, 1, sched.RunDue(ctx))

	latest, err := inbox.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, notify.KindLowStock, latest[0].Kind)
	assert.Equal(t, 2, latest[0].Count)
	assert.Equal(t, notify.KindExpiry, latest[1].Kind)
	assert.Equal(t, 2, latest[1].Count)

	jobs, err := sched.Jobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, DailyJobName, jobs[0].Name)
}
