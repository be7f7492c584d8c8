package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/internal/transport/mcp"
	"github.com/sandevgo/shopbot/pkg/srv"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:          "mcp",
	Short:        "Serve the catalog tools over MCP on stdio",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// stdout carries the protocol.
		var flushLog func()
		ctx, flushLog = setupLoggerTo(ctx, os.Stderr)
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

		if err := app.Indexer.Start(ctx); err != nil {
			return err
		}

		return mcp.NewServer(app.Executor, agent.Tools(), os.Stdin, os.Stdout).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
