package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
	cfgpkg "github.com/aerodeck/flightdeck-cli/internal/config"
	"github.com/aerodeck/flightdeck-cli/internal/dataset"
	"github.com/aerodeck/flightdeck-cli/internal/render"
)

// tempHome points HOME at a scratch dir so config reads and writes are
// isolated from the developer's machine.
func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

func writeFlightsCSV(t *testing.T, dir string) string {
	t.Helper()
	rows := []string{
		"AIRLINE,ORIGIN_AIRPORT,DEPARTURE_DELAY,ARRIVAL_DELAY,CANCELLED,MONTH",
		"DL,ATL,5,-3,0,1",
		"UA,ORD,12,20,0,1",
		"DL,ATL,0,0,0,2",
		"WN,DAL,n/a,15,1,2",
		"UA,ORD,-2,-8,0,3",
	}
	path := filepath.Join(dir, "flights.csv")
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// resetCommandState clears the loaded config and sticky flag state between
// invocations: cobra keeps flag values and Changed markers across Execute calls.
func resetCommandState() {
	cfg = nil
	cfgFile, debug = "", false
	flagData, flagDelimiter, flagSheet, flagMatchMode = "", "", "", ""
	repAirlines, repOutput, repJSON = nil, "", false
	chartAirlines, chartOutput = nil, ""
	chartViewName = string(render.ViewAirlineDelay)
	chartWidth, chartHeight = 0, 0
	expAirlines, expFormat, expOutput = nil, "csv", ""
	schemaJSON = false
	serveAddr, serveWatch = "", false

	for _, name := range []string{"config", "debug", "data", "delimiter", "sheet", "match-mode"} {
		if fl := rootCmd.PersistentFlags().Lookup(name); fl != nil {
			fl.Changed = false
		}
	}
	locals := []struct {
		cmd   *cobra.Command
		names []string
	}{
		{reportCmd, []string{"airlines", "output", "json"}},
		{chartCmd, []string{"view", "airlines", "output", "width", "height"}},
		{exportCmd, []string{"airlines", "format", "output"}},
		{schemaCmd, []string{"json"}},
		{serveCmd, []string{"listen", "watch"}},
	}
	for _, l := range locals {
		for _, name := range l.names {
			if fl := l.cmd.Flags().Lookup(name); fl != nil {
				fl.Changed = false
			}
		}
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	resetCommandState()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

// runCmdErr executes the root command and returns its error for tests that
// expect a failure.
func runCmdErr(t *testing.T, args ...string) error {
	t.Helper()
	resetCommandState()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCLI_ReportToFile(t *testing.T) {
	home := tempHome(t)
	data := writeFlightsCSV(t, home)
	out := filepath.Join(home, "report.md")

	runCmd(t, "report", "--data", data, "-o", out)

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	text := string(b)
	if !strings.Contains(text, "[FLIGHT METRICS]") {
		t.Errorf("report missing metrics section:\n%s", text)
	}
	if !strings.Contains(text, "Total flights: 5") {
		t.Errorf("report missing total flights:\n%s", text)
	}
	if !strings.Contains(text, "[INSIGHTS]") {
		t.Errorf("report missing insights section:\n%s", text)
	}
}

func TestCLI_ReportJSONFiltered(t *testing.T) {
	home := tempHome(t)
	data := writeFlightsCSV(t, home)
	out := filepath.Join(home, "report.json")

	runCmd(t, "report", "--data", data, "--json", "-a", "DL", "-o", out)

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var res analysis.Result
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if res.TotalFlights != 2 {
		t.Errorf("TotalFlights = %d, want 2", res.TotalFlights)
	}
	if len(res.ByAirline) != 1 || res.ByAirline[0].Key != "DL" {
		t.Errorf("ByAirline = %+v, want a single DL group", res.ByAirline)
	}
}

func TestCLI_ExportFilteredRoundTrip(t *testing.T) {
	home := tempHome(t)
	data := writeFlightsCSV(t, home)
	out := filepath.Join(home, "dl.csv")

	runCmd(t, "export", "--data", data, "-a", "DL", "-o", out)

	ds, err := dataset.Load(out, dataset.LoadOptions{})
	if err != nil {
		t.Fatalf("reload export: %v", err)
	}
	if ds.Rows() != 2 {
		t.Errorf("exported rows = %d, want 2", ds.Rows())
	}
}

func TestCLI_ChartWritesPNG(t *testing.T) {
	home := tempHome(t)
	data := writeFlightsCSV(t, home)
	out := filepath.Join(home, "trend.png")

	runCmd(t, "chart", "--data", data, "-v", "monthly-trend", "-o", out)

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if len(b) < 8 || string(b[:8]) != "\x89PNG\r\n\x1a\n" {
		t.Errorf("output is not a PNG (%d bytes)", len(b))
	}
}

func TestCLI_SchemaRuns(t *testing.T) {
	home := tempHome(t)
	data := writeFlightsCSV(t, home)

	runCmd(t, "schema", "--json", "--data", data)
}

func TestCLI_ConfigSetAndReload(t *testing.T) {
	tempHome(t)

	runCmd(t, "config", "set", "top_airports", "5")
	runCmd(t, "config", "set", "match_mode", "substring")

	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c.TopAirports != 5 {
		t.Errorf("top_airports = %d, want 5", c.TopAirports)
	}
	if c.MatchMode != "substring" {
		t.Errorf("match_mode = %q, want %q", c.MatchMode, "substring")
	}

	if err := runCmdErr(t, "config", "set", "match_mode", "fuzzy"); err == nil {
		t.Fatal("expected error for invalid match_mode")
	}
}

func TestCLI_AliasOverrideFromConfig(t *testing.T) {
	home := tempHome(t)

	rows := []string{
		"FLYING_COMPANY,ARRIVAL_DELAY",
		"DL,-3",
		"UA,20",
		"DL,7",
	}
	data := filepath.Join(home, "renamed.csv")
	if err := os.WriteFile(data, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfgDir := filepath.Join(home, ".flightdeck")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	yaml := "aliases:\n  airline: [flying_company]\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out := filepath.Join(home, "report.json")
	runCmd(t, "report", "--data", data, "--json", "-o", out)

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var res analysis.Result
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if len(res.ByAirline) != 2 {
		t.Fatalf("ByAirline = %+v, want DL and UA groups", res.ByAirline)
	}
}

func TestCLI_ReportWithoutDataFails(t *testing.T) {
	tempHome(t)

	if err := runCmdErr(t, "report"); err == nil {
		t.Fatal("expected error when no dataset is configured")
	}
}
