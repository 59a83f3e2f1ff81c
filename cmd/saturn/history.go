package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/history"
)

var historyFlags struct {
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent reconciliation decisions",
	Long: `Show the most recent actions recorded by apply and watch runs.

Each action carries the run id it belongs to, the decision kind
(create, update, attach, detach, skip, noop, warn), the policy name,
and whether the mutation was suppressed by dry-run.

Examples:
  # Show the last 20 actions
  saturn history

  # Show more, as JSON
  saturn history --limit 200 --format json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of actions to show")
	historyCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	logger := setupLogging(cfg)

	if !cfg.History.Enabled {
		return fmt.Errorf("history recording is disabled (set history.enabled)")
	}

	hs, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer hs.Close()

	actions, err := hs.Recent(historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	if historyFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, actions)
	}

	if len(actions) == 0 {
		fmt.Println("No recorded actions.")
		return nil
	}

	for _, a := range actions {
		runTag := a.RunID
		if len(runTag) > 8 {
			runTag = runTag[:8]
		}
		line := fmt.Sprintf("%s  %-8s %-6s %s", a.At.Format("2006-01-02 15:04:05"), runTag, a.Op, a.Policy)
		if a.Target != "" {
			line += " -> " + a.Target
		}
		if a.DryRun {
			line += " (dry-run)"
		}
		if a.Detail != "" {
			line += "  " + a.Detail
		}
		fmt.Println(line)
	}
	return nil
}
