package main // Entry point package

import (
    "fmt"
    "log/slog"
    "os"

    "github.com/spf13/cobra"

    "github.com/iliyamo/exam-reservation/internal/config"
    "github.com/iliyamo/exam-reservation/internal/database"
)

const programName = "exam-reservation"

var globalFlags = struct {
    debug bool
}{}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
    cfg, err := config.Load()
    if err != nil {
        return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
    }
    level := cfg.SlogLevel()
    if globalFlags.debug {
        level = slog.LevelDebug
    }
    logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
    slog.SetDefault(logger)
    return cfg, logger.With("component", programName), nil
}

func dbOptions(cfg config.Config) database.Options {
    return database.Options{
        Driver: cfg.DBDriver,
        User:   cfg.DBUser,
        Pass:   cfg.DBPass,
        Host:   cfg.DBHost,
        Port:   cfg.DBPort,
        Name:   cfg.DBName,
        Path:   cfg.DBPath,
    }
}

func main() {
    rootCmd := &cobra.Command{
        Use:          programName,
        Short:        "Exam reservation API server",
        SilenceUsage: true,
        RunE:         serveRun,
    }
    rootCmd.PersistentFlags().
        BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

    rootCmd.AddCommand(serveCommand())
    rootCmd.AddCommand(migrateCommand())
    rootCmd.AddCommand(consumeCommand())

    // cobra has already printed the error
    if err := rootCmd.Execute(); err != nil {
        os.Exit(1)
    }
}
