package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kuitang/et-e2e/internal/config"
	"github.com/kuitang/et-e2e/internal/env"
)

var (
	flagRunWorkers int
	flagRunRetries int
	flagRunReport  string
	flagRunID      string
)

// errScenariosFailed is returned when the run completed but not every scenario passed.
var errScenariosFailed = errors.New("scenarios failed")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Seed cases and run the selected scenarios",
		Long: `Run every selected scenario. Each attempt seeds a fresh case in CCD, opens a new
browser session and drives the scenario's workflows. A failed attempt is retried from
seeding; the scenario fails only when every attempt fails.

Examples:
  e2e run
  e2e run -t @e2e --exclude @wip -w 4
  e2e run --suite suites/leeds.yaml --retries 0 --report out/report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if flagRunWorkers > 0 {
				cfg.Workers = flagRunWorkers
			}
			if flagRunRetries >= 0 {
				cfg.Retries = flagRunRetries
			}
			cfg.PrintSummary()

			scs, err := selectScenarios(cfg.Tags, cfg.ExcludeTags)
			if err != nil {
				return err
			}
			if len(scs) == 0 {
				return errors.New("no scenarios match the tag filter")
			}

			ctx := cmd.Context()
			e, err := newEnv(ctx, cfg, env.Options{Browser: true, NeedS3: env.FixturesNeedS3(scs)})
			if err != nil {
				return err
			}
			defer e.Close()

			runner := e.Runner(cfg)
			runner.RunID = flagRunID

			report, runErr := runner.RunAll(ctx, scs)

			out := cmd.OutOrStdout()
			for _, res := range report.Results {
				status := "PASS"
				if !res.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%s  %s: %s (%d attempts)\n", status, res.Feature, res.Name, len(res.Attempts))
				if !res.Passed {
					last := res.Attempts[len(res.Attempts)-1]
					fmt.Fprintf(out, "      %s: %s\n", last.Phase, last.Error)
					for _, shot := range last.Screenshot {
						fmt.Fprintf(out, "      screenshot: %s\n", shot)
					}
				}
			}
			fmt.Fprintln(out, report.Summary())

			reportPath := flagRunReport
			if reportPath == "" && cfg.ArtifactsDir != "" {
				reportPath = filepath.Join(cfg.ArtifactsDir, "report.json")
			}
			if reportPath != "" {
				if err := report.Save(reportPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "report: %s\n", reportPath)
			}

			if runErr != nil {
				return runErr
			}
			if !report.OK() {
				return errScenariosFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&flagRunWorkers, "workers", "w", 0, "scenarios run in parallel (default E2E_WORKERS)")
	cmd.Flags().IntVar(&flagRunRetries, "retries", -1, "extra attempts per scenario (default TEST_RETRY_SCENARIOS)")
	cmd.Flags().StringVar(&flagRunReport, "report", "", "write the JSON report here (default <E2E_ARTIFACTS_DIR>/report.json)")
	cmd.Flags().StringVar(&flagRunID, "run-id", "", "identifier for logs and artifacts (default random)")
	return cmd
}
