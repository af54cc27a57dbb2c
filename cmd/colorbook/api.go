package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/colorbook/internal/api"
	"github.com/jackzampolin/colorbook/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Colorbook server via HTTP.

These commands require a running server (colorbook serve).
Use --server to specify a custom server URL.

Examples:
  colorbook api health                          # Check server health
  colorbook api sessions create --flow bulk     # Start a wizard session
  colorbook api ideas set <id> ideas.yaml       # Load ideas from a file
  colorbook api sessions batch <id>             # Build the batch
  colorbook api sessions run <id>               # Run every stage
  colorbook api sessions progress <id>          # Watch progress
  colorbook api jobs list                       # List all jobs`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func group(use, short string, eps []api.Endpoint) *cobra.Command {
	r := api.NewRegistry()
	for _, ep := range eps {
		r.Register(ep)
	}
	return r.BuildCommands(use, short, getServerURL)
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(group("sessions", "Wizard session, stage and export commands", endpoints.SessionEndpoints()))
	apiCmd.AddCommand(group("ideas", "Book idea commands", endpoints.IdeaEndpoints()))
	apiCmd.AddCommand(group("pages", "Page review commands", endpoints.PageEndpoints()))
	apiCmd.AddCommand(group("jobs", "Job management commands", endpoints.JobEndpoints()))
	apiCmd.AddCommand(group("settings", "Configuration settings commands", endpoints.SettingsEndpoints()))

	rootCmd.AddCommand(apiCmd)
}
