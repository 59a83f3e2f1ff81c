package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/content"
	"mercator-hq/saturn/pkg/history"
	"mercator-hq/saturn/pkg/manifest"
	"mercator-hq/saturn/pkg/reconcile"
	"mercator-hq/saturn/pkg/store"
)

var applyFlags struct {
	manifestPath  string
	baseDir       string
	dryRun        bool
	skipUnchanged bool
	substitutions string
	format        string
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge the manifest against the management plane",
	Long: `Converge the declared policies against remote state.

Apply indexes remote policies and the organizational hierarchy, then
creates missing policies, updates existing ones, and converges
attachments for every declared target. Policies that fail preparation
or a remote call are reported and skipped; the run continues with the
remaining declarations.

Examples:
  # Converge with defaults
  saturn apply

  # Converge a specific manifest
  saturn apply --manifest policies/rcp-manifest.yaml --base-dir policies

  # Report mutations without applying them
  saturn apply --dry-run

  # Replace account id placeholders in policy content
  saturn apply --substitutions "ACCOUNT_ID:123456789012"`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyFlags.manifestPath, "manifest", "m", "", "manifest file path (overrides config)")
	applyCmd.Flags().StringVar(&applyFlags.baseDir, "base-dir", "", "directory policy content files resolve against (overrides config)")
	applyCmd.Flags().BoolVar(&applyFlags.dryRun, "dry-run", false, "report intended mutations without invoking them")
	applyCmd.Flags().BoolVar(&applyFlags.skipUnchanged, "skip-unchanged", false, "skip updates when remote content and description already match")
	applyCmd.Flags().StringVar(&applyFlags.substitutions, "substitutions", "", "comma-separated from:to content substitutions, applied in order")
	applyCmd.Flags().StringVarP(&applyFlags.format, "format", "f", "text", "output format: text, json")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("apply", err)
	}
	applyFlagOverrides(cfg)

	logger := setupLogging(cfg)

	metrics := reconcile.NewMetrics(prometheus.NewRegistry())
	ctx := cli.SetupSignalHandler()

	res, err := executeRun(ctx, cfg, applyFlags.substitutions, logger, metrics, os.Stdout)
	if err != nil {
		return cli.NewCommandError("apply", err)
	}

	// Per-policy failures are reported in the summary but are not fatal:
	// the failed policies converge on a later run.
	if err := printSummary(os.Stdout, cli.OutputFormat(applyFlags.format), cfg.DryRun, res); err != nil {
		return cli.NewCommandError("apply", err)
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if applyFlags.manifestPath != "" {
		cfg.Manifest = applyFlags.manifestPath
	}
	if applyFlags.baseDir != "" {
		cfg.BaseDir = applyFlags.baseDir
	}
	if applyFlags.dryRun {
		cfg.DryRun = true
	}
	if applyFlags.skipUnchanged {
		cfg.SkipUnchanged = true
	}
}

// executeRun loads the manifest and runs one full reconciliation with
// the configured store, history recording, and reporting.
func executeRun(ctx context.Context, cfg *config.Config, substitutions string, logger *slog.Logger, metrics *reconcile.Metrics, out io.Writer) (*reconcile.Result, error) {
	if cfg.Endpoint.URL == "" {
		return nil, fmt.Errorf("no management-plane endpoint configured (set endpoint.url or %s)", config.EnvEndpoint)
	}

	subs, err := content.ParseSubstitutions(substitutions)
	if err != nil {
		return nil, err
	}
	preparer := content.NewPreparer(subs)

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, err
	}

	httpCfg := store.DefaultHTTPConfig(cfg.Endpoint.URL, cfg.Endpoint.Token)
	if cfg.Endpoint.Timeout > 0 {
		httpCfg.Timeout = cfg.Endpoint.Timeout
	}
	var st store.PolicyStore = store.NewHTTPStore(httpCfg)
	st = store.NewRetryStore(st, store.RetryConfig{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
	})

	reporters := reconcile.MultiReporter{reconcile.NewTextReporter(out)}
	if cfg.History.Enabled {
		hs, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		defer hs.Close()

		recorder := history.NewRecorder(hs, logger)
		reporters = append(reporters, recorder)
		logger.Debug("history recording enabled", "path", cfg.History.Path, "run_id", recorder.RunID())
	}

	rec := reconcile.New(st, preparer, reporters, logger, metrics, reconcile.Options{
		BaseDir:       cfg.BaseDir,
		DryRun:        cfg.DryRun,
		SkipUnchanged: cfg.SkipUnchanged,
	})
	return rec.Run(ctx, m)
}

func printSummary(w io.Writer, format cli.OutputFormat, dryRun bool, res *reconcile.Result) error {
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(w, res)
	}

	fmt.Fprintln(w)
	if dryRun {
		fmt.Fprintln(w, "Plan (no mutations invoked):")
	} else {
		fmt.Fprintln(w, "Summary:")
	}
	fmt.Fprintf(w, "  Policies processed: %d\n", res.Processed)
	fmt.Fprintf(w, "  Created: %d  Updated: %d  Unchanged: %d\n", res.Created, res.Updated, res.Unchanged)
	fmt.Fprintf(w, "  Attached: %d  Detached: %d\n", res.Attached, res.Detached)
	if res.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped: %d\n", res.Skipped)
	}
	if res.Failed > 0 {
		fmt.Fprintf(w, "  Failed: %d\n", res.Failed)
	}
	return nil
}
