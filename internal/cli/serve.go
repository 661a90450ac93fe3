package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/dataset"
	"github.com/yumyai/cgcompare/pkg/db"
	"github.com/yumyai/cgcompare/pkg/handler"
	"github.com/yumyai/cgcompare/pkg/hpc"
	"github.com/yumyai/cgcompare/pkg/metrics"
	"github.com/yumyai/cgcompare/pkg/model"
	"github.com/yumyai/cgcompare/pkg/orchestrator"
)

var (
	serveAddr     string
	drainTimeout  time.Duration
	refreshPeriod int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Load every configured species dataset and serve the comparative API.

SIGHUP reloads config.yaml and the datasets; jobs already accepted keep the
data they were accepted against. SIGINT and SIGTERM stop accepting requests
and wait for running jobs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default CGCOMPARE_ADDR)")
	serveCmd.Flags().DurationVar(&drainTimeout, "drain-timeout", 30*time.Second, "how long to wait for running jobs on shutdown")
	serveCmd.Flags().IntVar(&refreshPeriod, "page-refresh", 5, "job page refresh interval in seconds")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr == "" {
		serveAddr = cfg.Addr
	}
	logger.Info("Start:", zap.String("Version", Version), zap.String("data", cfg.DataDir))

	idx, err := dataset.Load(cfg.Species)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}
	registry := dataset.NewRegistry(idx)

	ctx := context.Background()
	stores, err := db.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	m := metrics.New()
	jobs := orchestrator.New(registry, stores.Status, model.NewGrapeTree(cfg.TreeBuilderCmd), orchestrator.Options{
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		Archive:     stores.Archive,
		TreeMethods: cfg.TreeMethods,
		Metrics:     m,
	})

	app := &handler.AppContext{
		Jobs:           jobs,
		Bifrost:        newBifrost(cfg),
		Metrics:        m,
		RefreshSeconds: refreshPeriod,
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           handler.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", serveAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				logger.Error("Error starting server", zap.Error(err))
				_ = jobs.Close(ctx)
				return err
			}
			return nil
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				reload(registry)
				continue
			}
			logger.Info("Shutting down", zap.String("signal", sig.String()))
			return shutdown(srv, jobs)
		}
	}
}

func shutdown(srv *http.Server, jobs *orchestrator.Orchestrator) error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	if err := jobs.Close(ctx); err != nil {
		logger.Warn("Jobs still running at shutdown were cancelled", zap.Error(err))
	}
	return nil
}

// reload swaps in freshly loaded datasets. A broken config or dataset keeps
// the current ones.
func reload(registry *dataset.Registry) {
	start := time.Now()
	next, err := config.Load()
	if err != nil {
		logger.Error("Reload failed, keeping current datasets", zap.Error(err))
		return
	}
	idx, err := dataset.Load(next.Species)
	if err != nil {
		logger.Error("Reload failed, keeping current datasets", zap.Error(err))
		return
	}
	registry.Swap(idx)
	logger.Info("Reloaded datasets", zap.Strings("species", idx.Species()), zap.Duration("took", time.Since(start)))
}

// newBifrost wires the SSH runner when an HPC host is configured. Without one
// the Bifrost endpoints still list analyses but cannot launch.
func newBifrost(cfg *config.Config) *hpc.Bifrost {
	var runner hpc.Runner
	if cfg.HPC.Enabled() {
		r, err := hpc.NewSSHRunner(cfg.HPC)
		if err != nil {
			logger.Error("HPC runner disabled", zap.Error(err))
		} else {
			runner = r
		}
	}
	return hpc.NewBifrost(runner, cfg)
}
