package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zamanbank/assistant/internal/app"
	"github.com/zamanbank/assistant/internal/config"
)

var askUserID int64

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run one conversational turn from the command line",
	Long: `ask sends a single message through the full orchestration pipeline
and prints the reply. Useful for smoke testing a deployment without a client.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().Int64Var(&askUserID, "user", 1, "user id to ask as")
}

func runAsk(ctx context.Context, message string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	resp, err := a.Assistant.OnUserMessage(ctx, askUserID, message)
	if err != nil {
		return fmt.Errorf("running turn: %w", err)
	}

	fmt.Println(resp.Text)
	if len(resp.Media) > 0 {
		fmt.Println("\nmedia:")
		for _, m := range resp.Media {
			fmt.Println("  " + m)
		}
	}
	if len(resp.QuickReplies) > 0 {
		fmt.Println("\nquick replies:")
		for _, q := range resp.QuickReplies {
			fmt.Println("  " + q)
		}
	}
	return nil
}
