// Package cmd defines and implements the CLI commands for the docwatch
// executable.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docwatch/docwatch/internal/classify"
	"github.com/docwatch/docwatch/internal/config"
	"github.com/docwatch/docwatch/internal/detect"
	"github.com/docwatch/docwatch/internal/fetcher"
	"github.com/docwatch/docwatch/internal/fetcher/headless"
	"github.com/docwatch/docwatch/internal/fingerprint"
	"github.com/docwatch/docwatch/internal/logging"
	"github.com/docwatch/docwatch/internal/notify"
	"github.com/docwatch/docwatch/internal/ops"
	"github.com/docwatch/docwatch/internal/parse"
	"github.com/docwatch/docwatch/internal/pipeline"
	"github.com/docwatch/docwatch/internal/registry"
	"github.com/docwatch/docwatch/internal/snapshot"
	"github.com/docwatch/docwatch/internal/watch"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docwatch",
		Short: "Monitors documentation endpoints for content changes.",
		Long: `docwatch fetches a configured set of documentation endpoints
(HTML pages, OpenAPI specs, raw JSON, Postman collections, Markdown),
normalizes each into structured content, and records whether the content
changed since the last observation.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml when present)")
	cmd.AddCommand(newOnceCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles everything one run needs. Built per command invocation
// and closed when the command returns.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	fetcher  watch.Fetcher
	orch     *pipeline.Orchestrator
	notifier watch.Notifier
	ops      *ops.Server

	closers []func()
}

func buildApp(ctx context.Context) (*app, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	a.fetcher, err = a.buildFetcher()
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway, err := a.buildGateway(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orch, err = pipeline.New(
		pipeline.Config{
			Concurrency: cfg.Pipeline.Concurrency,
			RunDeadline: cfg.RunDeadline(),
		},
		a.fetcher,
		classify.New(cfg.Pipeline.StrictParsing),
		parse.Default(),
		fingerprint.New(),
		detect.New(),
		gateway,
		watch.SystemClock{},
		logger,
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.notifier = notify.NewLog(logger)
	a.ops = ops.NewServer(logger.Named("ops"))
	return a, nil
}

func (a *app) buildFetcher() (watch.Fetcher, error) {
	probe := fetcher.New(fetcher.Config{
		UserAgent:    a.cfg.HTTP.UserAgent,
		Timeout:      a.cfg.FetchTimeout(),
		MaxBodyBytes: a.cfg.HTTP.MaxBodyBytes,
		Retry:        watch.NewRetryPolicy(a.cfg.HTTP.MaxRetries, a.cfg.BackoffInitial(), a.cfg.BackoffMax()),
	}, watch.SystemClock{}, a.logger.Named("fetch"))

	if !a.cfg.Headless.Enabled {
		return probe, nil
	}

	rendered, err := headless.New(headless.Config{
		MaxParallel:       a.cfg.Headless.MaxParallel,
		UserAgent:         a.cfg.HTTP.UserAgent,
		NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSeconds) * time.Second,
	}, watch.SystemClock{})
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	a.closers = append(a.closers, rendered.Close)

	return fetcher.NewPromoting(probe, rendered, fetcher.NewHeuristic(0), a.logger.Named("render")), nil
}

func (a *app) buildGateway(ctx context.Context) (watch.SnapshotGateway, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no database configured, snapshots are held in memory only")
		return snapshot.NewMemory(), nil
	}
	gw, err := snapshot.NewPostgres(ctx, snapshot.PostgresConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init snapshot store: %w", err)
	}
	a.closers = append(a.closers, gw.Close)
	return gw, nil
}

// startOps launches the health/metrics server when enabled.
func (a *app) startOps() {
	if !a.cfg.Ops.Enabled {
		return
	}
	addr := fmt.Sprintf(":%d", a.cfg.Ops.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.ops.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.closers = append(a.closers, func() { _ = srv.Close() })
	go func() {
		a.logger.Info("ops server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("ops server stopped", zap.Error(err))
		}
	}()
}

// runOnce executes one full pass over the registry and reports it.
func (a *app) runOnce(ctx context.Context) (watch.RunReport, error) {
	reg, err := registry.Load(a.cfg.Watcher.TargetsFile)
	if err != nil {
		return watch.RunReport{}, err
	}
	report, err := a.orch.Run(ctx, reg.Targets())
	if err != nil {
		return watch.RunReport{}, err
	}
	a.ops.RecordRun(report)
	if err := a.notifier.Notify(ctx, report); err != nil {
		a.logger.Warn("notifier failed", zap.Error(err))
	}
	return report, nil
}

// Close releases resources in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
