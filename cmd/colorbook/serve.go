package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/config"
	"github.com/jackzampolin/colorbook/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Colorbook server",
	Long: `Start the Colorbook HTTP server.

The server keeps wizard sessions in memory and runs stage jobs in the
background. The config file is watched and reloaded; scheduler and stage
settings apply to the next job.

The server provides:
  - /health        - Basic server health check
  - /ready         - Readiness check (studio client configured)
  - /api/sessions  - Wizard sessions, batches, stages and exports
  - /swagger/      - API documentation

Examples:
  colorbook serve                    # Start on the configured address
  colorbook serve --port 3000        # Start on custom port
  colorbook serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}
		h, err := openHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		if cm.ConfigFileUsed() != "" {
			cm.WatchConfig()
			cm.OnChange(func(*config.Config) {
				logger.Info("config reloaded", "file", cm.ConfigFileUsed())
			})
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cm,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")

	rootCmd.AddCommand(serveCmd)
}
