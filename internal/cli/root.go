// Package cli implements the e2e command.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kuitang/et-e2e/internal/config"
	"github.com/kuitang/et-e2e/internal/env"
	"github.com/kuitang/et-e2e/internal/obs"
	"github.com/kuitang/et-e2e/internal/paths"
	"github.com/kuitang/et-e2e/internal/scenario"
)

var (
	flagLogLevel string
	flagTags     []string
	flagExclude  []string
	flagSuites   []string
	flagNoPaths  bool
)

// newRootCmd builds the command tree. Every call binds fresh flag values.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "e2e",
		Short: "End-to-end suite for the Employment Tribunals case manager",
		Long: `e2e seeds cases in CCD and drives ExUI through case workflows in Chromium.

Configuration comes from the environment (TEST_E2E_URL, IDAM_URL, CCD_DATA_STORE_API_URL,
CASEWORKER_USERNAME, ...). Flags override tags, workers and retries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			obs.Init()
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(flagLogLevel)); err != nil {
				return err
			}
			obs.SetLevel(lvl)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringSliceVarP(&flagTags, "tag", "t", nil, "run scenarios carrying any of these tags (e.g. @manchester)")
	root.PersistentFlags().StringSliceVar(&flagExclude, "exclude", nil, "skip scenarios carrying any of these tags")
	root.PersistentFlags().StringSliceVar(&flagSuites, "suite", nil, "YAML suite files to add to the built-in scenarios")
	root.PersistentFlags().BoolVar(&flagNoPaths, "no-builtin", false, "only run scenarios from --suite files")

	root.AddCommand(newListCmd(), newRunCmd(), newSeedCmd())
	return root
}

// newEnv builds the live environment. Tests replace it.
var newEnv = env.Build

// ExecuteContext runs the root command. Cancelling ctx stops a run between actions.
func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// selectScenarios gathers built-in and suite scenarios and applies the tag filter.
// Environment tags apply when no tag flags are given.
func selectScenarios(envTags, envExclude []string) ([]scenario.Scenario, error) {
	var all []scenario.Scenario
	if !flagNoPaths {
		all = append(all, paths.All()...)
	}
	for _, path := range flagSuites {
		scs, err := scenario.LoadSuiteFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, scs...)
	}

	filter := scenario.TagFilter{Include: envTags, Exclude: envExclude}
	if len(flagTags) > 0 {
		filter.Include = config.NormalizeTags(flagTags)
	}
	if len(flagExclude) > 0 {
		filter.Exclude = config.NormalizeTags(flagExclude)
	}
	return scenario.Select(all, filter), nil
}
