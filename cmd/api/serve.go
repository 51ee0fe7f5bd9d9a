package main

import (
	"assignmentTracker/internal/app"
	"assignmentTracker/internal/config"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a := app.New(cfg)
			defer func() {
				err = multierr.Append(err, a.Close())
			}()

			if err := a.Init(ctx); err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}
