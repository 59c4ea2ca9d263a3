package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/loadgen"
	"github.com/okian/clicker/pkg/logger"
)

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var cfg loadgen.Config
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Publish generated documents to the score server and verify them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := loadgen.New(ctx.store(), cfg, loadgen.WithLogger(logger.Get().Named("load")))
			stats, err := r.Run(cmd.Context())
			if ctx.json {
				if werr := writeJSON(cmd, stats); werr != nil {
					return werr
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Generated", "Published", "Conflicts", "Failed", "Verified", "p50", "p99", "Rate/s"},
				[][]string{{
					fmt.Sprint(stats.Generated),
					fmt.Sprint(stats.Published),
					fmt.Sprint(stats.Conflicts),
					fmt.Sprint(stats.Failed),
					fmt.Sprint(stats.Verified),
					stats.P50.String(),
					stats.P99.String(),
					fmt.Sprintf("%.1f", stats.PublishRate()),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return err
		},
	}
	cmd.Flags().IntVar(&cfg.Documents, "documents", 100, "Documents to generate")
	cmd.Flags().IntVar(&cfg.Clicks, "clicks", 20, "Clicks per document")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 4, "Concurrent publishers")
	cmd.Flags().Float64Var(&cfg.Repeat, "repeat", 0.1, "Share of documents published twice")
	cmd.Flags().Float64Var(&cfg.MaxTime, "max-time", 600, "Latest click timestamp in seconds")
	return cmd
}
