package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/aerodeck/flightdeck-cli/internal/config"
)

// version is reported by the serve health endpoint.
const version = "0.1.0"

var (
	// Global flags (wired to config via loadConfig)
	cfgFile string
	debug   bool
	// Dataset flags (override config if set)
	flagData      string
	flagDelimiter string
	flagSheet     string
	flagMatchMode string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "flightdeck",
	Short: "FlightDeck: flight-records analytics from the terminal",
	Long: `FlightDeck loads a flight-records table (CSV, TSV or XLSX), resolves its
columns to canonical fields regardless of how the source names them, and
computes delay KPIs, per-airline and per-month rankings and text insights
that can be reported, charted, exported or served as a dashboard API.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.flightdeck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "path to the flight-records file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: single character or 'tab' (default: by file extension)")
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "", "XLSX worksheet name (default: first sheet)")
	rootCmd.PersistentFlags().StringVar(&flagMatchMode, "match-mode", "", "column matching mode: exact | substring (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	applyFlagOverrides()
}

// ensureConfig returns the loaded configuration, loading it on demand when a
// command runs without going through Execute (tests drive rootCmd directly).
func ensureConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	applyFlagOverrides()
	return cfg, nil
}

// applyFlagOverrides lets explicit CLI flags win over file/env configuration.
func applyFlagOverrides() {
	f := rootCmd.PersistentFlags()
	if f.Changed("data") && flagData != "" {
		cfg.DataPath = flagData
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = flagDelimiter
	}
	if f.Changed("sheet") {
		cfg.Sheet = flagSheet
	}
	if f.Changed("match-mode") && flagMatchMode != "" {
		cfg.MatchMode = flagMatchMode
	}
}
