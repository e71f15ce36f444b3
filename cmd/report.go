package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
	"github.com/aerodeck/flightdeck-cli/internal/utils"
)

var (
	repAirlines []string
	repOutput   string
	repJSON     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute KPIs, rankings and insights for the loaded dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		res := analysis.Compute(p.filtered(repAirlines), p.sm, metricOptions())

		var out []byte
		if repJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			out = append(b, '\n')
		} else {
			out = []byte(res.Markdown())
		}

		if repOutput != "" {
			if err := utils.SafeWriteFile(repOutput, out); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Printf("✓ Wrote report to %s\n", repOutput)
			return nil
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringSliceVarP(&repAirlines, "airlines", "a", nil, "restrict to these airline values (comma-separated, repeatable; default all)")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "optional path to write the report instead of stdout")
	reportCmd.Flags().BoolVar(&repJSON, "json", false, "emit the raw metrics as JSON instead of Markdown")
}
