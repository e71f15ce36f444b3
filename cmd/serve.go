package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aerodeck/flightdeck-cli/internal/schema"
	"github.com/aerodeck/flightdeck-cli/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	Long: `Serve loads the configured dataset once and exposes it as a JSON/PNG API:
dataset metadata, filter options, metrics, rendered charts and filtered-table
export. With --watch the source file is observed and the dataset reloaded on
the next request after it changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		if c.DataPath == "" {
			return fmt.Errorf("no dataset configured: pass --data or set data_path in config")
		}
		opt, err := loadOptions(c)
		if err != nil {
			return err
		}
		mode, err := schema.ParseMode(c.MatchMode)
		if err != nil {
			return err
		}
		overrides, err := schema.ParseOverrides(c.Aliases)
		if err != nil {
			return err
		}

		addr := c.ListenAddr
		if cmd.Flags().Changed("listen") {
			addr = serveAddr
		}
		watch := c.Watch
		if cmd.Flags().Changed("watch") {
			watch = serveWatch
		}

		srv := server.New(server.Config{
			Addr:     addr,
			DataPath: c.DataPath,
			Load:     opt,
			Mode:     mode,
			Aliases:  overrides,
			Metrics:  metricOptions(),
			Chart:    chartOptions(),
			Watch:    watch,
			Version:  version,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "listen", "l", "", "listen address (default from config: 127.0.0.1:8080)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the dataset when the source file changes on disk")
}
