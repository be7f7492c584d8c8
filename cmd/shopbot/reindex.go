package main

import (
	"fmt"

	"github.com/sandevgo/shopbot/internal/service/ui"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:          "reindex",
	Short:        "Reload the seed catalog and rebuild the vector index",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}
		defer app.DB.Close()

		report, err := app.Indexer.ReseedAndReindex(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.ReplyStyle.Render(
			fmt.Sprintf("Seeded %d products, indexed %d.", report.Seeded, report.Indexed),
		))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
