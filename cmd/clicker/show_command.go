package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/domain/replay"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Print the clicks and totals of a scores document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			built := rebuild(doc)
			l := built.Ledger()
			summary := l.Summary(replay.NoCursor)

			if ctx.json {
				return writeJSON(cmd, map[string]any{
					"hash":      built.Hash,
					"videoId":   built.VideoID,
					"judgeName": built.JudgeName,
					"entries":   l.Entries(),
					"summary":   summary,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, l.Len())
			running := 0
			for i, e := range l.Entries() {
				running += e.Delta
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					formatSeconds(e.Timestamp),
					formatDelta(e.Delta, colorize),
					strconv.Itoa(running),
				})
			}
			fmt.Fprintf(out, "Video %s", built.VideoID)
			if built.JudgeName != "" {
				fmt.Fprintf(out, " judged by %s", built.JudgeName)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Time", "Delta", "Total"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "clicks %d  +%d  %d  total %d  span %s\n",
				summary.Count, summary.Positive, summary.Negative, summary.Total, formatSeconds(summary.Span))
			return nil
		},
	}
}
