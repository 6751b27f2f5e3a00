// Package cmd contains the CLI entry points.
//
// Design: following the pattern used by kubectl, hugo and other standard Go
// CLI tools, all application logic lives here, leaving main.go as a minimal
// entry point.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zamanbank/assistant/internal/log"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "zaman-assistant",
	Short: "Conversational banking assistant service",
	Long: `zaman-assistant runs the conversational banking assistant: a model
orchestration loop with banking tools (saving strategies, spending analytics,
investment recommendations, peer goal comparison) and FAQ retrieval.

Run 'zaman-assistant serve' to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, askCmd, migrateCmd, versionCmd)
}

// initLogger builds the process logger. Debug level comes from --debug or
// the DEBUG environment variable.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugFlag || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)
	return logger
}
