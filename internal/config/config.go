package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global is the effective FlightDeck configuration after merging defaults,
// the config file and FLIGHTDECK_* environment variables.
type Global struct {
	// Dataset input
	DataPath  string `mapstructure:"data_path" yaml:"data_path"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`

	// Column resolution. Aliases replaces the built-in alias list for a role,
	// keyed by role name (airline, arrival_delay, ...); file/env only.
	MatchMode string              `mapstructure:"match_mode" yaml:"match_mode"`
	Aliases   map[string][]string `mapstructure:"aliases" yaml:"aliases,omitempty"`

	// Metrics engine
	TopAirports   int `mapstructure:"top_airports" yaml:"top_airports"`
	HistogramBins int `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	SampleCap     int `mapstructure:"sample_cap" yaml:"sample_cap"`

	// Chart rendering
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height"`

	// Dashboard server
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	Watch      bool   `mapstructure:"watch" yaml:"watch"`
}

// configDir resolves ~/.flightdeck without creating it.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".flightdeck"), nil
}

// Save writes c as YAML to cfgFile, or to ~/.flightdeck/config.yaml when
// cfgFile is empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load merges defaults, the optional config file and FLIGHTDECK_* env vars.
// Precedence: env > config file > defaults; CLI flag overrides are applied by
// the cmd layer on top of the result.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FLIGHTDECK")
	v.AutomaticEnv()

	// SetDefault registers each key, which AutomaticEnv needs to surface
	// FLIGHTDECK_* values into Unmarshal.
	v.SetDefault("data_path", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet", "")
	v.SetDefault("match_mode", "exact")
	v.SetDefault("aliases", map[string][]string{})
	v.SetDefault("top_airports", 10)
	v.SetDefault("histogram_bins", 40)
	v.SetDefault("sample_cap", 2000)
	v.SetDefault("chart_width", 1024)
	v.SetDefault("chart_height", 480)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("watch", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// the file is optional; absence falls back to defaults and env
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
