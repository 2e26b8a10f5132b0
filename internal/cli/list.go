package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kuitang/et-e2e/internal/config"
)

var flagListJSON bool

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenarios a run would execute",
		Long: `List the scenarios selected by the tag flags, with their tags, fixture and retry count.

Examples:
  e2e list
  e2e list -t @manchester --exclude @wip
  e2e list --suite suites/leeds.yaml --no-builtin --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			scs, err := selectScenarios(cfg.Tags, cfg.ExcludeTags)
			if err != nil {
				return err
			}

			type listed struct {
				Feature  string   `json:"feature"`
				Name     string   `json:"name"`
				Tags     []string `json:"tags"`
				Fixture  string   `json:"fixture"`
				CaseType string   `json:"case_type"`
				Attempts int      `json:"attempts"`
			}
			rows := make([]listed, 0, len(scs))
			for _, sc := range scs {
				attempts := sc.Retries + 1
				if sc.Retries < 0 {
					attempts = cfg.Retries + 1
				}
				rows = append(rows, listed{
					Feature:  sc.Feature,
					Name:     sc.Name,
					Tags:     sc.Tags,
					Fixture:  sc.Fixture,
					CaseType: string(sc.CaseType),
					Attempts: attempts,
				})
			}

			out := cmd.OutOrStdout()
			if flagListJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tTAGS\tFIXTURE\tATTEMPTS")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s: %s\t%s\t%s\t%d\n", r.Feature, r.Name, strings.Join(r.Tags, " "), r.Fixture, r.Attempts)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d scenarios\n", len(rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagListJSON, "json", false, "print scenarios as JSON")
	return cmd
}
