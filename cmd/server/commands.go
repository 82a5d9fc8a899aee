package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/DaDevFox/task-systems/household-core/internal/alerts"
	"github.com/DaDevFox/task-systems/household-core/internal/initializer"
	"github.com/DaDevFox/task-systems/household-core/internal/notify"
	"github.com/DaDevFox/task-systems/household-core/internal/scheduler"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

func newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	var target int
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database if needed and apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if target == 0 {
				target = cfg.DB.TargetVersion
			}

			st, err := store.Open(cmd.Context(), store.Options{Path: cfg.DB.Path, TargetVersion: target, Logger: logger})
			if err != nil {
				return errors.Wrap(err, "migrate database")
			}
			defer st.Close()

			version, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", st.Path(), version)
			return nil
		},
	}
	migrateCmd.Flags().IntVar(&target, "to", 0, "target schema version (default: configured db.target_version)")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Report the database state without modifying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			state, version, err := store.CheckState(cmd.Context(), cfg.DB.Path)
			if err != nil {
				return errors.Wrap(err, "verify database")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (schema version %d, latest %d)\n", cfg.DB.Path, state, version, store.LatestVersion)
			if state != store.StateReady {
				return errors.Errorf("database is %s", state)
			}
			return nil
		},
	}

	dbCmd.AddCommand(migrateCmd, verifyCmd)
	return dbCmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty database with starter household data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := initializer.New(a.repos.Categories, a.repos.Items, a.repos.Shopping, a.logger).Run(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if !result.Seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "database already populated, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d items, %d shopping list entries\n",
				result.Categories, result.Items, result.ShoppingItems)
			return nil
		},
	}
}

func newAlertsCmd() *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and deliver inventory alerts",
	}

	var send bool
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the inventory now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), send)
			if err != nil {
				return err
			}
			defer a.Close()

			if send {
				notifier, err := a.notifier()
				if err != nil {
					return errors.Wrap(err, "configure notifications")
				}
				return a.alertWorker(notifier).Run(cmd.Context())
			}

			report, err := a.alertWorker(nil).Check(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&send, "notify", false, "deliver notifications through the configured methods")

	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "List undismissed alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			latest, err := notify.NewInboxNotifier(a.state).Latest(cmd.Context())
			if err != nil {
				return err
			}
			if len(latest) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no alerts")
			}
			for _, alert := range latest {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s: %s (%s)\n",
					alert.Kind, alert.Title, alert.Text, alert.RaisedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	dismissCmd := &cobra.Command{
		Use:   "dismiss KIND",
		Short: "Dismiss an alert by kind (low_stock, expiry, warranty or 1-3)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := notify.ParseKind(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			return notify.NewInboxNotifier(a.state).Dismiss(cmd.Context(), kind)
		},
	}

	alertsCmd.AddCommand(checkCmd, inboxCmd, dismissCmd)
	return alertsCmd
}

func printReport(cmd *cobra.Command, report alerts.Report) {
	out := cmd.OutOrStdout()
	groups := []struct {
		title string
		items int
	}{
		{"Low stock", len(report.LowStock)},
		{"Expiring within 7 days", len(report.Expiring)},
		{"Warranty ending within 30 days", len(report.WarrantyExpiring)},
	}
	for _, g := range groups {
		fmt.Fprintf(out, "%-32s %d\n", g.title, g.items)
	}
	for _, item := range report.LowStock {
		fmt.Fprintf(out, "  low stock: %s (%d/%d)\n", item.Name, item.Quantity, item.MinStockLevel)
	}
	for _, item := range report.Expiring {
		fmt.Fprintf(out, "  expiring:  %s (%s)\n", item.Name, item.ExpirationDate.Format("2006-01-02"))
	}
	for _, item := range report.WarrantyExpiring {
		fmt.Fprintf(out, "  warranty:  %s (%s)\n", item.Name, item.WarrantyDate.Format("2006-01-02"))
	}
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List persisted scheduler jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := scheduler.NewTickerScheduler(a.state, a.logger).Jobs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range records {
				a.logger.WithFields(logrus.Fields{
					"interval":    r.Interval.String(),
					"next_run":    r.NextRun.Format(time.RFC3339),
					"last_status": r.LastStatus,
					"last_run_id": r.LastRunID,
				}).Info(r.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d job(s)\n", len(records))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build and schema versions",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "household %s (schema %d)\n", version.String(), store.LatestVersion)
		},
	}
}
