package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/adapters/prefs"
	"github.com/okian/clicker/pkg/logger"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	var (
		path     string
		positive string
		negative string
		name     string
	)
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Show or change the saved key bindings and judge name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := prefs.Open(path, prefs.WithLogger(logger.Get().Named("prefs")))
			p, err := file.Load(cmd.Context())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			changed := false
			if flags.Changed("positive") {
				p.Bindings.Positive = positive
				changed = true
			}
			if flags.Changed("negative") {
				p.Bindings.Negative = negative
				changed = true
			}
			if flags.Changed("name") {
				p.JudgeName = name
				changed = true
			}
			if changed {
				if err := file.Save(cmd.Context(), p); err != nil {
					return err
				}
				if p, err = file.Load(cmd.Context()); err != nil {
					return err
				}
			}

			if ctx.json {
				return writeJSON(cmd, p)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "positive  %s\n", p.Bindings.Positive)
			fmt.Fprintf(out, "negative  %s\n", p.Bindings.Negative)
			fmt.Fprintf(out, "judge     %s\n", p.JudgeName)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "clicker-prefs.json", "Preferences file")
	cmd.Flags().StringVar(&positive, "positive", "", "Key that records +1")
	cmd.Flags().StringVar(&negative, "negative", "", "Key that records -1")
	cmd.Flags().StringVar(&name, "name", "", "Judge name stored with exports")
	return cmd
}
