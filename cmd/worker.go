package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gatherly/apiserver/config"
	"github.com/gatherly/apiserver/internal/notify"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Delivers queued outbound mail",
	Long: `Consumes mail messages published by the queue notifier backend and
delivers them through the configured sender. Usage:

	apiserver worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := config.NewLogger(cfg.Logging)

		worker, err := notify.NewWorker(cfg, logger)
		if err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer func() {
			_ = worker.Close()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker stopped: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
