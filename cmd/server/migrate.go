package main

import (
    "fmt"

    "github.com/spf13/cobra"

    "github.com/iliyamo/exam-reservation/internal/database"
)

func migrateCommand() *cobra.Command {
    return &cobra.Command{
        Use:   "migrate",
        Short: "Create the database schema if it does not exist",
        RunE: func(cmd *cobra.Command, _ []string) error {
            cfg, logger, err := loadConfig()
            if err != nil {
                return err
            }
            db, err := database.Open(dbOptions(cfg))
            if err != nil {
                return fmt.Errorf("open database: %w", err)
            }
            defer db.Close()

            if err := database.Migrate(cmd.Context(), db, cfg.DBDriver); err != nil {
                return err
            }
            logger.Info("schema up to date", "driver", cfg.DBDriver)
            return nil
        },
    }
}
