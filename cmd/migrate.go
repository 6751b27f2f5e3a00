package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zamanbank/assistant/db"
	"github.com/zamanbank/assistant/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending database migrations and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := initLogger()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if err := db.Migrate(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	},
}
