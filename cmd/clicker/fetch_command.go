package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/domain/document"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fetch HASH",
		Short: "Download a published scores document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ctx.store().QueryByHash(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}
			if output == "" {
				return writeJSON(cmd, doc)
			}
			if output == "." {
				output = document.Filename("44clicker", doc.VideoID)
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `Write to a file instead of stdout; "." picks the export name`)
	return cmd
}
