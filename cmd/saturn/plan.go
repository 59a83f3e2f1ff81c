package main

import (
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Report intended mutations without applying them",
	Long: `Compute and report every mutation apply would issue, without
invoking any of them.

Plan is apply with dry-run forced on: it reads remote state to index
policies and the hierarchy, but suppresses create, update, attach, and
detach uniformly. Remote state is never modified.

Examples:
  # Preview the next apply
  saturn plan

  # Preview a specific manifest as JSON
  saturn plan --manifest policies/rcp-manifest.yaml --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags.dryRun = true
		return runApply(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&applyFlags.manifestPath, "manifest", "m", "", "manifest file path (overrides config)")
	planCmd.Flags().StringVar(&applyFlags.baseDir, "base-dir", "", "directory policy content files resolve against (overrides config)")
	planCmd.Flags().StringVar(&applyFlags.substitutions, "substitutions", "", "comma-separated from:to content substitutions, applied in order")
	planCmd.Flags().StringVarP(&applyFlags.format, "format", "f", "text", "output format: text, json")
}
