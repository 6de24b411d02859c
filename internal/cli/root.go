// Package cli implements the tickvoice command line interface.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/tickvoice/tickvoice/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  _   _      _        _\n" +
		" | |_(_) ___| | __ __(_) ___  ___\n" +
		" | __| |/ __| |/ /\\ \\ / |/ __|/ _ \\\n" +
		" | |_| | (__|   <  \\ V /| (__|  __/\n" +
		"  \\__|_|\\___|_|\\_\\  \\_/  \\___|\\___|\n"
)

var rootCmd = &cobra.Command{
	Use:   "tickvoice",
	Short: "tickvoice - Voice task assistant",
	Long:  color.CyanString(logo) + "\nA voice-driven task assistant bridging a websocket channel to your task tracker.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(authorizeCmd)
}
