package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/types"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish FILE",
		Short: "Publish a scores document to the score server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			built := rebuild(doc)
			if len(built.Scores) == 0 {
				return fmt.Errorf("%s: %w: no clicks to publish", args[0], document.ErrFormat)
			}

			res := types.PublishResult{Hash: built.Hash, URL: document.ShareURL(ctx.server, built.Hash)}
			err = ctx.store().Publish(cmd.Context(), built)
			switch {
			case err == nil:
				res.Status = types.StatusPublished
			case errors.Is(err, repository.ErrConflict):
				res.Status = types.StatusAlreadyPublished
			default:
				return fmt.Errorf("%s: %w", types.StatusPublishFailed, err)
			}

			if ctx.json {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Status, res.URL)
			return nil
		},
	}
}
