package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/DaDevFox/task-systems/household-core/internal/alerts"
	"github.com/DaDevFox/task-systems/household-core/internal/domain"
	"github.com/DaDevFox/task-systems/household-core/internal/notify"
)

const (
	// BootJobName is the one-off check run after the process starts
	BootJobName = "inventory_notifications_boot"
	// DailyJobName is the recurring check
	DailyJobName = "inventory_notifications"
	// DailyInterval is the period of the recurring check
	DailyInterval = 24 * time.Hour
)

// ItemSource provides a snapshot of every inventory item
type ItemSource interface {
	All(ctx context.Context) ([]domain.InventoryItem, error)
}

// AlertWorker evaluates the inventory and sends one notification per alert
// kind that has at least one item
type AlertWorker struct {
	items    ItemSource
	notifier notify.Notifier
	clock    func() time.Time
	logger   *logrus.Logger
}

// NewAlertWorker creates a worker. A nil clock means time.Now.
func NewAlertWorker(items ItemSource, notifier notify.Notifier, clock func() time.Time, logger *logrus.Logger) *AlertWorker {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AlertWorker{
		items:    items,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Check evaluates the current inventory without notifying
func (w *AlertWorker) Check(ctx context.Context) (alerts.Report, error) {
	items, err := w.items.All(ctx)
	if err != nil {
		return alerts.Report{}, errors.Wrap(err, "load inventory snapshot")
	}
	return alerts.Evaluate(items, w.clock()), nil
}

// Run performs one evaluate and notify pass. Notifications go out in the
// order low stock, expiry, warranty; the first failure ends the run and the
// notifications already sent stay sent.
func (w *AlertWorker) Run(ctx context.Context) error {
	report, err := w.Check(ctx)
	if err != nil {
		return err
	}

	counts := report.Counts()
	w.logger.WithFields(logrus.Fields{
		"low_stock":         counts.LowStock,
		"expiring":          counts.Expiring,
		"warranty_expiring": counts.WarrantyExpiring,
	}).Info("inventory evaluated")

	pending := []struct {
		kind  notify.Kind
		count int
	}{
		{notify.KindLowStock, counts.LowStock},
		{notify.KindExpiry, counts.Expiring},
		{notify.KindWarranty, counts.WarrantyExpiring},
	}
	for _, p := range pending {
		if p.count == 0 {
			continue
		}
		if err := w.notifier.Notify(ctx, p.kind, p.count); err != nil {
			return errors.Wrapf(err, "notify %s", p.kind)
		}
	}
	return nil
}
