package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/reconcile"
	"mercator-hq/saturn/pkg/runner"
)

var watchFlags struct {
	manifestPath  string
	baseDir       string
	substitutions string
	dryRun        bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run reconciliation on manifest or policy file changes",
	Long: `Watch the manifest and policy content directory and re-run
reconciliation whenever they change.

File events are debounced, so a burst of edits triggers a single run.
When watch.schedule is configured, runs also fire on that cron
schedule regardless of file activity. When watch.metrics_addr is
configured, Prometheus metrics are served there for the lifetime of
the watch.

Examples:
  # Watch with defaults
  saturn watch

  # Watch and only plan, never mutate
  saturn watch --dry-run`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.manifestPath, "manifest", "m", "", "manifest file path (overrides config)")
	watchCmd.Flags().StringVar(&watchFlags.baseDir, "base-dir", "", "directory policy content files resolve against (overrides config)")
	watchCmd.Flags().StringVar(&watchFlags.substitutions, "substitutions", "", "comma-separated from:to content substitutions, applied in order")
	watchCmd.Flags().BoolVar(&watchFlags.dryRun, "dry-run", false, "report intended mutations without invoking them")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	if watchFlags.manifestPath != "" {
		cfg.Manifest = watchFlags.manifestPath
	}
	if watchFlags.baseDir != "" {
		cfg.BaseDir = watchFlags.baseDir
	}
	if watchFlags.dryRun {
		cfg.DryRun = true
	}

	logger := setupLogging(cfg)
	metrics := reconcile.NewMetrics(prometheus.DefaultRegisterer)

	if cfg.Watch.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			logger.Info("serving metrics", "address", cfg.Watch.MetricsAddr)
			if err := http.ListenAndServe(cfg.Watch.MetricsAddr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	run := func(ctx context.Context) error {
		res, err := executeRun(ctx, cfg, watchFlags.substitutions, logger, metrics, os.Stdout)
		if err != nil {
			return err
		}
		return printSummary(os.Stdout, cli.FormatText, cfg.DryRun, res)
	}

	ctx := cli.SetupSignalHandler()

	if cfg.Watch.Schedule != "" {
		sched, err := runner.NewScheduler(cfg.Watch.Schedule, run, logger)
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		if err := sched.Start(ctx); err != nil {
			return cli.NewCommandError("watch", err)
		}
		defer sched.Stop()
	}

	watcher, err := runner.NewWatcher([]string{cfg.Manifest, cfg.BaseDir}, cfg.Watch.Debounce, run, logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	// Converge once before waiting on changes.
	if err := run(ctx); err != nil {
		logger.Error("initial run failed", "error", err)
	}

	fmt.Println("\nWatching for changes. Press Ctrl+C to stop.")
	if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("watch", err)
	}
	fmt.Println("✓ Watch stopped")
	return nil
}
