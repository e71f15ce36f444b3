package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerodeck/flightdeck-cli/internal/schema"
	"github.com/aerodeck/flightdeck-cli/internal/utils"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show how the dataset's columns resolve to canonical fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		if schemaJSON {
			bindings := make(map[string]string, len(p.sm))
			for role, col := range p.sm {
				bindings[string(role)] = col
			}
			b, err := utils.PrettyJSON(map[string]any{
				"dataset": p.ds.Name,
				"rows":    p.ds.Rows(),
				"columns": p.ds.Columns(),
				"schema":  bindings,
				"unbound": p.sm.Unbound(),
			})
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}

		fmt.Printf("Dataset: %s (%d rows, %d columns)\n", p.ds.Name, p.ds.Rows(), len(p.ds.Columns()))
		for _, role := range schema.Roles {
			if col, ok := p.sm.Column(role); ok {
				fmt.Printf("  %-16s -> %s\n", role, col)
			} else {
				fmt.Printf("  %-16s -> (unbound)\n", role)
			}
		}
		if ub := p.sm.Unbound(); len(ub) > 0 {
			fmt.Printf("⚠ %d role(s) unbound; dependent metrics will report insufficient data\n", len(ub))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "emit the resolved schema as JSON")
}
