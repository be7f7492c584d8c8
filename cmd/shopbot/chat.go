package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sandevgo/shopbot/internal/transport/cli"
	"github.com/sandevgo/shopbot/pkg/srv"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:          "chat",
	Short:        "Talk to the assistant in the terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}

		background := app.Background()
		srv.StartServices(ctx, background)
		defer func() {
			stop()
			srv.ShutdownServices(ctx, context.WithoutCancel(ctx), background)
		}()

		// Build the index before the first prompt so early questions can match.
		if err := app.Indexer.Start(ctx); err != nil {
			return err
		}

		repl, err := cli.NewReadLine(app.Agent, app.Router, app.Cfg)
		if err != nil {
			return err
		}
		defer repl.Shutdown(ctx)

		return repl.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
