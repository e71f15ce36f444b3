package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/aerodeck/flightdeck-cli/internal/config"
	"github.com/aerodeck/flightdeck-cli/internal/dataset"
	"github.com/aerodeck/flightdeck-cli/internal/schema"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set FlightDeck configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		fmt.Printf("data_path: %s\n", c.DataPath)
		if c.Delimiter != "" {
			fmt.Printf("delimiter: %s\n", c.Delimiter)
		}
		if c.Sheet != "" {
			fmt.Printf("sheet: %s\n", c.Sheet)
		}
		fmt.Printf("match_mode: %s\n", c.MatchMode)
		for _, role := range schema.Roles {
			if list, ok := c.Aliases[string(role)]; ok && len(list) > 0 {
				fmt.Printf("aliases.%s: %s\n", role, strings.Join(list, ", "))
			}
		}
		fmt.Printf("top_airports: %d\n", c.TopAirports)
		fmt.Printf("histogram_bins: %d\n", c.HistogramBins)
		fmt.Printf("sample_cap: %d\n", c.SampleCap)
		fmt.Printf("chart_width: %d\n", c.ChartWidth)
		fmt.Printf("chart_height: %d\n", c.ChartHeight)
		fmt.Printf("listen_addr: %s\n", c.ListenAddr)
		fmt.Printf("watch: %t\n", c.Watch)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "data_path":
			cfg.DataPath = val
		case "delimiter":
			if _, err := dataset.ParseDelimiter(val); err != nil {
				return err
			}
			cfg.Delimiter = val
		case "sheet":
			cfg.Sheet = val
		case "match_mode":
			mode, err := schema.ParseMode(val)
			if err != nil {
				return err
			}
			cfg.MatchMode = string(mode)
		case "top_airports":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for top_airports: %v", val)
			}
			cfg.TopAirports = i
		case "histogram_bins":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for histogram_bins: %v", val)
			}
			cfg.HistogramBins = i
		case "sample_cap":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for sample_cap: %v", val)
			}
			cfg.SampleCap = i
		case "chart_width":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for chart_width: %v", val)
			}
			cfg.ChartWidth = i
		case "chart_height":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for chart_height: %v", val)
			}
			cfg.ChartHeight = i
		case "listen_addr":
			cfg.ListenAddr = val
		case "watch":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for watch: %v", val)
			}
			cfg.Watch = b
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
