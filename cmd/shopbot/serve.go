package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/shopbot/pkg/log"
	"github.com/sandevgo/shopbot/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the Telegram bot",
	Long:  `Seeds and indexes the catalog, then serves every enabled transport until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting shopbot")

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}

		transports, err := app.Transports(ctx)
		if err != nil {
			app.DB.Close()
			return err
		}

		// The index builds in the background so the health endpoint answers
		// while embeddings are computed.
		services := append(app.Background(), app.Indexer)
		services = append(services, transports...)

		srv.StartServices(ctx, services)
		srv.ShutdownServices(ctx, context.WithoutCancel(ctx), services)

		logger.Info().Msg("shopbot has been shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
