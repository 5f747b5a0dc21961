package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/venue-admin/pkg/portal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the admin CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Venue admin portal tooling",
		Long: `Venue Admin CLI

Operational tooling for the venue admin portal: issue session tokens, inspect
entity schemas, create database tables, and list or upload tenant data using
the same configuration as the server.

Configuration is read from the environment and an optional .env file:
` + config.EnvUsage(),
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(NewTokenCommand())
	rootCmd.AddCommand(NewEntitiesCommand())
	rootCmd.AddCommand(NewSchemaSQLCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewAttachmentsCommand())

	return rootCmd
}

func loadConfig(opts ...config.Option) (*config.ServerConfig, error) {
	return config.Load(append([]config.Option{config.WithEnv()}, opts...)...)
}
