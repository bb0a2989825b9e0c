package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/router"
	"github.com/bluerally/buooy-backend/internal/scheduler"
	"github.com/bluerally/buooy-backend/pkg/metrics"
	"github.com/bluerally/buooy-backend/pkg/migration"
)

const shutdownTimeout = 15 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Migrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API, the metrics listener and the party expiry scheduler.

Example:
  buooy serve
  buooy serve --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	if opts.Migrate {
		sqlDB, err := a.db.Postgres.DB()
		if err != nil {
			return err
		}
		m, err := migration.New(sqlDB, a.cfg.App.MigrationDir, log)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			return err
		}
	}

	m := metrics.New()
	deps, err := a.dependencies(ctx, m)
	if err != nil {
		return err
	}
	e, svc, err := router.NewServer(deps)
	if err != nil {
		return err
	}

	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		loc, err := time.LoadLocation(a.cfg.Scheduler.TimeZone)
		if err != nil {
			return fmt.Errorf("scheduler time zone: %w", err)
		}
		sched = scheduler.New(loc, log, m)
		if err := sched.Register(scheduler.DeactivateExpiredJob, a.cfg.Scheduler.CronSpec, svc.Parties.DeactivateExpired); err != nil {
			return err
		}
		sched.Start()
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("api listening", zap.String("port", a.cfg.App.Port), zap.String("env", a.cfg.App.Env))
		if err := e.Start(":" + a.cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var metricsServer *echo.Echo
	if a.cfg.App.MetricsPort != "" {
		metricsServer = echo.New()
		metricsServer.HideBanner = true
		metricsServer.HidePort = true
		metricsServer.GET("/metrics", echo.WrapHandler(m.Handler()))
		go func() {
			log.Info("metrics listening", zap.String("port", a.cfg.App.MetricsPort))
			if err := metricsServer.Start(":" + a.cfg.App.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown", zap.Error(err))
	}
	if deps.RequestLogWriter != nil {
		if err := deps.RequestLogWriter.Close(shutdownCtx); err != nil {
			log.Warn("request logs not fully stored", zap.Error(err))
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics shutdown", zap.Error(err))
		}
	}
	return runErr
}
