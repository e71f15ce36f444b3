package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aerodeck/flightdeck-cli/internal/dataset"
)

var (
	expAirlines []string
	expFormat   string
	expOutput   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered table to a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(expFormat))
		if format != "csv" && format != "xlsx" {
			return fmt.Errorf("unknown format %q (want csv or xlsx)", expFormat)
		}
		p, err := openPipeline()
		if err != nil {
			return err
		}
		frame := p.filtered(expAirlines)

		out := expOutput
		if out == "" {
			base := strings.TrimSuffix(p.ds.Name, filepath.Ext(p.ds.Name))
			out = base + "_filtered." + format
		}
		switch format {
		case "csv":
			err = dataset.WriteCSV(frame, out)
		case "xlsx":
			err = dataset.WriteXLSX(frame, out)
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		fmt.Printf("✓ Exported %d rows to %s\n", frame.Nrow(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringSliceVarP(&expAirlines, "airlines", "a", nil, "restrict to these airline values (comma-separated, repeatable; default all)")
	exportCmd.Flags().StringVarP(&expFormat, "format", "f", "csv", "output format: csv | xlsx")
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output path (default <dataset>_filtered.<format>)")
}
