package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/moodlemate/moodlemate/internal/config"
	"github.com/moodlemate/moodlemate/internal/rag"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the documentation assistant in the terminal",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	sessionID := uuid.NewString()
	fmt.Println("Moodlemate - ask about Moodle, type \"exit\" to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer := system.Pipeline.Answer(ctx, question, sessionID)
		fmt.Println()
		fmt.Println(answer.Text)
		printSources(answer.Sources)

		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func printSources(sources []rag.Source) {
	if len(sources) == 0 {
		fmt.Println()
		return
	}
	fmt.Println("\nSources:")
	for _, src := range sources {
		line := fmt.Sprintf("  - %s (%.2f)", src.Title, src.Score)
		if src.URL != "" {
			line += " " + src.URL
		}
		fmt.Println(line)
	}
	fmt.Println()
}
