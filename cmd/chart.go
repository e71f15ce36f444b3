package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
	"github.com/aerodeck/flightdeck-cli/internal/render"
	"github.com/aerodeck/flightdeck-cli/internal/utils"
)

var (
	chartAirlines []string
	chartViewName string
	chartOutput   string
	chartWidth    int
	chartHeight   int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render one analysis view of the dataset to a PNG file",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := render.ParseView(chartViewName)
		if err != nil {
			return err
		}
		p, err := openPipeline()
		if err != nil {
			return err
		}
		res := analysis.Compute(p.filtered(chartAirlines), p.sm, metricOptions())

		opt := chartOptions()
		if cmd.Flags().Changed("width") && chartWidth > 0 {
			opt.Width = chartWidth
		}
		if cmd.Flags().Changed("height") && chartHeight > 0 {
			opt.Height = chartHeight
		}
		png, err := render.Chart(res, view, opt)
		if err != nil {
			return err
		}

		out := chartOutput
		if out == "" {
			out = string(view) + ".png"
		}
		if err := utils.SafeWriteFile(out, png); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Printf("✓ Wrote %s chart to %s (%d bytes)\n", view, out, len(png))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartViewName, "view", "v", string(render.ViewAirlineDelay), "analysis view: airline-delay | monthly-trend | busiest-airports | delay-distribution | delay-scatter")
	chartCmd.Flags().StringSliceVarP(&chartAirlines, "airlines", "a", nil, "restrict to these airline values (comma-separated, repeatable; default all)")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "output PNG path (default <view>.png)")
	chartCmd.Flags().IntVar(&chartWidth, "width", 0, "chart width in pixels (overrides config)")
	chartCmd.Flags().IntVar(&chartHeight, "height", 0, "chart height in pixels (overrides config)")
}
