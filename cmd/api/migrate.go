package main

import (
	"assignmentTracker/internal/config"
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/repository/task/postgres"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы PostgreSQL",
	}
	cmd.AddCommand(migrateStep("up", "Применить все миграции", postgres.Migrate))
	cmd.AddCommand(migrateStep("down", "Откатить все миграции", postgres.Down))
	return cmd
}

func migrateStep(use, short string, run func(string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Repository.Type != config.RepositoryPostgres {
				return fmt.Errorf("миграции нужны только для postgres, в конфиге %q", cfg.Repository.Type)
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url не задан")
			}

			if err := logger.Init(cfg.Logging.Development); err != nil {
				return fmt.Errorf("инициализация логгера: %w", err)
			}
			defer logger.Sync()

			return run(cfg.Database.URL)
		},
	}
}
