package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/DaDevFox/task-systems/household-core/internal/config"
	"github.com/DaDevFox/task-systems/household-core/internal/events"
	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
	"github.com/DaDevFox/task-systems/household-core/internal/logging"
	"github.com/DaDevFox/task-systems/household-core/internal/notify"
	"github.com/DaDevFox/task-systems/household-core/internal/repository"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
	"github.com/DaDevFox/task-systems/household-core/internal/worker"
)

// app holds the components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	feed     *events.PubSub
	provider *store.Provider
	store    *store.Store
	repos    *repository.Repositories
	state    kvstore.Store
}

// loadConfig reads configuration and configures the process logger
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}
	return cfg, logging.Configure(cfg.Logger.Level, cfg.Logger.Format), nil
}

// openApp opens the store migrated to the latest schema version, which the
// repositories require, and, when withState is set, the key/value state store.
// db.target_version only applies to db migrate.
func openApp(ctx context.Context, withState bool) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	feed := events.NewPubSub(logger)
	provider := store.NewProvider(store.Options{
		Path:          cfg.DB.Path,
		TargetVersion: store.LatestVersion,
		Logger:        logger,
		Feed:          feed,
	})
	st, err := provider.Get(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", cfg.DB.Path)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		feed:     feed,
		provider: provider,
		store:    st,
		repos:    repository.New(st),
	}

	if withState {
		state, err := kvstore.New(cfg.State.Path, cfg.State.Backend)
		if err != nil {
			a.Close()
			return nil, errors.Wrapf(err, "open state store %s", cfg.State.Path)
		}
		a.state = state
	}
	return a, nil
}

func (a *app) notifier() (notify.Notifier, error) {
	return notify.New(a.cfg.NotifierConfig(), a.state, a.logger)
}

func (a *app) alertWorker(n notify.Notifier) *worker.AlertWorker {
	return worker.NewAlertWorker(a.repos.Items, n, nil, a.logger)
}

// Close releases the state store and the database
func (a *app) Close() {
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close state store")
		}
	}
	if err := a.provider.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close store")
	}
}
