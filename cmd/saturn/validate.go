package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/content"
	"mercator-hq/saturn/pkg/manifest"
)

var validateFlags struct {
	manifestPath  string
	baseDir       string
	substitutions string
	format        string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the manifest and policy content locally",
	Long: `Validate the manifest and every declared policy content file
without contacting the management plane.

Validation checks:
  - Manifest structure (names present and unique, resource files set)
  - Policy content parses as JSON
  - Prepared content fits the size limit after minification and
    substitutions

Examples:
  # Validate the default manifest
  saturn validate

  # Validate with the substitutions apply would use
  saturn validate --substitutions "ACCOUNT_ID:123456789012"

  # JSON output for CI
  saturn validate --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.manifestPath, "manifest", "m", "", "manifest file path (overrides config)")
	validateCmd.Flags().StringVar(&validateFlags.baseDir, "base-dir", "", "directory policy content files resolve against (overrides config)")
	validateCmd.Flags().StringVar(&validateFlags.substitutions, "substitutions", "", "comma-separated from:to content substitutions, applied in order")
	validateCmd.Flags().StringVarP(&validateFlags.format, "format", "f", "text", "output format: text, json")
}

// PolicyCheck is the validation outcome for one declared policy.
type PolicyCheck struct {
	Policy string `json:"policy"`
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Size   int    `json:"size,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	if validateFlags.manifestPath != "" {
		cfg.Manifest = validateFlags.manifestPath
	}
	if validateFlags.baseDir != "" {
		cfg.BaseDir = validateFlags.baseDir
	}
	setupLogging(cfg)

	subs, err := content.ParseSubstitutions(validateFlags.substitutions)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	preparer := content.NewPreparer(subs)

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	checks := make([]PolicyCheck, 0, len(m.Policies))
	invalid := 0
	for _, spec := range m.Policies {
		check := PolicyCheck{Policy: spec.Name, File: spec.ResourceFile}

		prepared, err := preparer.PrepareFile(filepath.Join(cfg.BaseDir, spec.ResourceFile))
		if err != nil {
			check.Error = err.Error()
			invalid++
		} else {
			check.Valid = true
			check.Size = len(prepared)
		}
		checks = append(checks, check)
	}

	if validateFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, checks); err != nil {
			return cli.NewCommandError("validate", err)
		}
	} else {
		for _, check := range checks {
			if check.Valid {
				fmt.Printf("✓ %s (%s, %d bytes)\n", check.Policy, check.File, check.Size)
			} else {
				fmt.Printf("✗ %s (%s): %s\n", check.Policy, check.File, check.Error)
			}
		}
		fmt.Printf("\n%d of %d policies valid\n", len(checks)-invalid, len(checks))
	}

	if invalid > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("%d of %d policies invalid", invalid, len(checks)))
	}
	return nil
}
