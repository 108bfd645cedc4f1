package main

import (
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the gatehouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Gatehouse - credential authentication service",
		Long: `Gatehouse is a session-based authentication service: it registers
users with hashed passwords, authenticates them against stored credentials,
and manages server-side sessions over an HTTP API.`,
	}

	// Global flag for config file path. Defaults to config.yaml in the XDG
	// config directory when that file exists.
	cmd.PersistentFlags().StringVar(&configFile, "config", xdg.DefaultConfigFile(), "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAddUserCmd())

	return cmd
}
