// Satelink is a driver and monitoring tool for Satel Integra alarm
// panels reached through an ETHM-1 network integration module.
//
// It speaks the Integra integration protocol over TCP, optionally
// encrypted with the module's integration key, and provides a live TUI
// dashboard, a plain event log, direct arm/disarm/output commands,
// mDNS discovery of integration modules, and a local websocket bridge
// that pushes panel events to subscribers as JSON.
//
// Usage:
//
//	satelink [command] [flags]
//
// Running without arguments launches the monitor dashboard.
// See 'satelink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/satelink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "satelink",
	Short: "Satel Integra Alarm Panel Utility",
	Long: `A driver and monitoring utility for Satel Integra alarm panels.

Connects to the panel's ETHM network integration module over TCP,
optionally encrypted with the module's integration key. Provides a live
monitoring dashboard, direct arm/disarm/output commands, module
discovery, and a websocket event bridge.

If no command is specified, the monitor dashboard will launch.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the monitor when no subcommand provided
		return runMonitor(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("satelink %s (commit: %s)\n", version.Version, version.Commit)
	},
}
