package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/DaDevFox/task-systems/household-core/internal/initializer"
	"github.com/DaDevFox/task-systems/household-core/internal/scheduler"
	"github.com/DaDevFox/task-systems/household-core/internal/worker"
)

// healthService is the name clients use to ask for store readiness specifically
const healthService = "household.Store"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background alert scheduler and the health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	if a.cfg.Seed.OnStart {
		seeder := initializer.New(a.repos.Categories, a.repos.Items, a.repos.Shopping, logger)
		if _, err := seeder.Run(ctx, time.Now()); err != nil {
			return errors.Wrap(err, "seed starter data")
		}
	}

	notifier, err := a.notifier()
	if err != nil {
		return errors.Wrap(err, "configure notifications")
	}
	alertWorker := a.alertWorker(notifier)

	sched := scheduler.NewTickerScheduler(a.state, logger, scheduler.WithTick(a.cfg.Scheduler.Tick))
	if err := sched.ScheduleOnce(ctx, worker.BootJobName, alertWorker.Run); err != nil {
		return err
	}
	if err := sched.ScheduleDaily(ctx, worker.DailyJobName, a.cfg.Scheduler.Interval, scheduler.KeepExisting, alertWorker.Run); err != nil {
		return err
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", a.cfg.Health.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", a.cfg.Health.Addr)
	}

	// the store is open and migrated at this point
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.WithError(err).Error("gRPC server failed")
			cancel()
		}
	}()

	sched.Start(ctx)

	logger.WithFields(logrus.Fields{
		"health_addr": lis.Addr().String(),
		"db_path":     a.store.Path(),
		"version":     version.String(),
	}).Info("household-core started")

	<-ctx.Done()

	logger.Info("shutting down household-core")
	healthServer.Shutdown()
	sched.Stop()
	grpcServer.GracefulStop()
	return nil
}
