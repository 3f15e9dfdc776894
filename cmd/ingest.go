package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moodlemate/moodlemate/internal/config"
	"github.com/moodlemate/moodlemate/internal/ingest"
	"github.com/moodlemate/moodlemate/internal/rag"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Load chunked documentation JSONL files into the vector store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, dir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	system, cleanup, err := rag.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	defer cleanup()

	loader := ingest.NewLoader(system.Store, logger)
	stats, err := loader.LoadDir(ctx, dir)
	if err != nil {
		return err
	}

	total, err := system.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}

	fmt.Printf("Loaded %d chunks from %d files (%d skipped), %d documents total.\n",
		stats.Loaded, stats.Files, stats.Skipped, total)
	return nil
}
