package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/domain/document"
)

var errHashMismatch = errors.New("stored hash does not match the scores")

// rebuild normalizes doc the way a publish does: merged, sorted scores and a
// recomputed hash.
func rebuild(doc document.Document) document.Document {
	return document.Build(doc.VideoID, doc.JudgeName, doc.Ledger(), time.UnixMilli(doc.Date))
}

func newHashCommand(ctx *commandContext) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "hash FILE",
		Short: "Compute the content hash of a scores document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			built := rebuild(doc)
			matches := doc.Hash == "" || doc.Hash == built.Hash

			if ctx.json {
				if err := writeJSON(cmd, map[string]any{
					"hash":    built.Hash,
					"stored":  doc.Hash,
					"matches": matches,
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), built.Hash)
				if !matches {
					fmt.Fprintf(cmd.ErrOrStderr(), "stored hash %s differs\n", doc.Hash)
				}
			}
			if check && !matches {
				return errHashMismatch
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Fail when the stored hash does not match")
	return cmd
}
