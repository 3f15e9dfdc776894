// Package cmd contains the moodlemate command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/moodlemate/moodlemate/internal/log"
)

var (
	flagDebug    bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "moodlemate",
	Short: "Moodlemate - RAG chat service for the Moodle documentation",
	Long: `Moodlemate answers questions about the Moodle documentation by
retrieving relevant passages from a pgvector index and grounding an
LLM's answers on them, with per-session conversational memory.

Run "moodlemate serve" to start the HTTP API, or "moodlemate chat"
for an interactive console session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "write logs as JSON")
}

// newLogger builds the process logger from the global flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSONLogs})
}
