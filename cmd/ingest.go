package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load cities and run one ingestion pass, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := rt.app.Prepare(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			rt.logger.Info("ingest command finished",
				zap.Bool("skipped", summary.Skipped),
				zap.Int("global", summary.Global),
				zap.Int("local", summary.Local),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "skipped=%t global=%d local=%d\n",
				summary.Skipped, summary.Global, summary.Local)
			return nil
		},
	}
}
