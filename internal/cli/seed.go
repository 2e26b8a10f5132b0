package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/et-e2e/internal/ccd"
	"github.com/kuitang/et-e2e/internal/config"
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/env"
	"github.com/kuitang/et-e2e/internal/fixture"
	"github.com/kuitang/et-e2e/internal/s3client"
)

var (
	flagSeedCount  int
	flagSeedSet    map[string]string
	flagSeedUnique map[string]string
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture> <case-type>",
		Short: "Create cases in CCD from a fixture",
		Long: `Create cases in CCD without driving the browser and print their references.
The fixture is a path under E2E_FIXTURES_DIR or an s3://bucket/key URI.

Examples:
  e2e seed ccd-case-manchester-data.json Manchester
  e2e seed ccd-case-leeds-data.json Leeds -n 5 --unique feeGroupReference=E2E`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseType, err := domain.ParseCaseType(args[1])
			if err != nil {
				return err
			}
			if flagSeedCount < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := newEnv(ctx, cfg, env.Options{NeedS3: s3client.IsURI(args[0])})
			if err != nil {
				return err
			}
			defer e.Close()

			overrides := make(map[string]any, len(flagSeedSet)+len(flagSeedUnique))
			for path, v := range flagSeedSet {
				overrides[path] = v
			}
			for path, prefix := range flagSeedUnique {
				overrides[path] = fixture.Unique(prefix)
			}

			for range flagSeedCount {
				id, err := e.Seeder.Seed(ctx, ccd.SeedRequest{
					Fixture:   args[0],
					CaseType:  caseType,
					Overrides: overrides,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, id.Hyphenated())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&flagSeedCount, "count", "n", 1, "number of cases to create")
	cmd.Flags().StringToStringVar(&flagSeedSet, "set", nil, "override a fixture field (path=value)")
	cmd.Flags().StringToStringVar(&flagSeedUnique, "unique", nil, "give a fixture field a fresh value per case (path=prefix)")
	return cmd
}
