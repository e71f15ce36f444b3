package cmd

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
	cfgpkg "github.com/aerodeck/flightdeck-cli/internal/config"
	"github.com/aerodeck/flightdeck-cli/internal/dataset"
	"github.com/aerodeck/flightdeck-cli/internal/render"
	"github.com/aerodeck/flightdeck-cli/internal/schema"
)

// pipeline is one loaded dataset taken through schema resolution and numeric
// normalization, the shared front half of every one-shot command.
type pipeline struct {
	ds    *dataset.Dataset
	sm    schema.Map
	frame dataframe.DataFrame
}

// openPipeline loads the configured dataset, resolves its schema and coerces
// the numeric-role columns. The data path must come from --data, config or
// FLIGHTDECK_DATA_PATH.
func openPipeline() (*pipeline, error) {
	c, err := ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.DataPath == "" {
		return nil, fmt.Errorf("no dataset configured: pass --data or set data_path in config")
	}
	opt, err := loadOptions(c)
	if err != nil {
		return nil, err
	}
	resolver, err := buildResolver(c)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.Load(c.DataPath, opt)
	if err != nil {
		return nil, err
	}
	sm := resolver.Resolve(ds.Columns())
	if debug {
		fmt.Printf("Loaded %s: %d rows, %d columns\n", ds.Name, ds.Rows(), len(ds.Columns()))
		for _, role := range schema.Roles {
			if col, ok := sm.Column(role); ok {
				fmt.Printf("  %-16s -> %s\n", role, col)
			} else {
				fmt.Printf("  %-16s -> (unbound)\n", role)
			}
		}
	}
	return &pipeline{ds: ds, sm: sm, frame: analysis.Normalize(ds.Frame, sm)}, nil
}

// filtered applies an airline selection to the pipeline's frame. An empty
// selection means all airlines.
func (p *pipeline) filtered(airlines []string) dataframe.DataFrame {
	return analysis.ApplyFilter(p.frame, p.sm, selection(airlines))
}

// selection drops empty tokens and maps "nothing given" to "no restriction".
func selection(airlines []string) []string {
	var out []string
	for _, a := range airlines {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func loadOptions(c *cfgpkg.Global) (dataset.LoadOptions, error) {
	delim, err := dataset.ParseDelimiter(c.Delimiter)
	if err != nil {
		return dataset.LoadOptions{}, err
	}
	return dataset.LoadOptions{Delimiter: delim, Sheet: c.Sheet}, nil
}

// buildResolver turns the configured match mode and alias overrides into a
// column resolver.
func buildResolver(c *cfgpkg.Global) (schema.Resolver, error) {
	mode, err := schema.ParseMode(c.MatchMode)
	if err != nil {
		return schema.Resolver{}, err
	}
	overrides, err := schema.ParseOverrides(c.Aliases)
	if err != nil {
		return schema.Resolver{}, err
	}
	return schema.NewResolver(mode).WithOverrides(overrides), nil
}

// metricOptions translates config into engine options, falling back to the
// shipped defaults for unset or nonsense values.
func metricOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	if cfg == nil {
		return opt
	}
	if cfg.TopAirports > 0 {
		opt.TopAirports = cfg.TopAirports
	}
	if cfg.HistogramBins > 0 {
		opt.HistogramBins = cfg.HistogramBins
	}
	if cfg.SampleCap > 0 {
		opt.SampleCap = cfg.SampleCap
	}
	return opt
}

func chartOptions() render.Options {
	opt := render.DefaultOptions()
	if cfg == nil {
		return opt
	}
	if cfg.ChartWidth > 0 {
		opt.Width = cfg.ChartWidth
	}
	if cfg.ChartHeight > 0 {
		opt.Height = cfg.ChartHeight
	}
	return opt
}
