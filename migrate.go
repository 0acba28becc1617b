package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tour-booking/internal/storage"
)

func migrateCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the MySQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("failed to load %s: %w", envFile, err)
				}
			}
			return runMigration(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to an additional .env file")
	return cmd
}

func runMigration(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Close()

	if cfg.Database.Driver == "memory" {
		log.Warn("MIGRATE", "DB_DRIVER is memory, nothing to migrate")
		return nil
	}

	store, err := storage.NewMySQLStore(cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		log.Error("MIGRATE", err.Error())
		return err
	}

	fmt.Fprintf(os.Stdout, "Migration completed successfully on %s\n", cfg.Database.Database)
	return nil
}
