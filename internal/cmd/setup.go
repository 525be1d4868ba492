package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create database indexes or run schema migrations",
	Long: `Prepares the configured store. For MongoDB this creates the unique
order-number and email indexes; for PostgreSQL and SQLite it applies the
embedded migrations.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close(context.WithoutCancel(ctx))

	if err := db.Setup(ctx); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	log.Info("database ready", "driver", cfg.Database.Driver)
	return nil
}
