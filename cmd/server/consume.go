package main

import (
    "context"
    "errors"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"

    "github.com/iliyamo/exam-reservation/internal/queue"
)

func consumeCommand() *cobra.Command {
    return &cobra.Command{
        Use:   "consume",
        Short: "Append reservation events from the broker to the event log",
        RunE: func(cmd *cobra.Command, _ []string) error {
            cfg, logger, err := loadConfig()
            if err != nil {
                return err
            }
            ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
            defer stop()

            c := queue.NewConsumer(cfg.AMQPURL, cfg.EventQueue, cfg.LogDir, logger)
            logger.Info("consuming reservation events", "queue", c.Queue, "log_dir", c.LogDir)
            if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                return err
            }
            return nil
        },
    }
}
