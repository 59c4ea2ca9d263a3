package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/pkg/logger"
)

const defaultServer = "http://localhost:9080"

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "clicker",
		Short:         "Score, replay and share click documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			level := "warn"
			if ctx.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("CLICKER_SCORE_SERVER_URL")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", server, "Score server base URL")
	rootCmd.PersistentFlags().BoolVar(&ctx.json, "json", false, "Print JSON instead of text")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newHashCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newReplayCommand(ctx))
	rootCmd.AddCommand(newPublishCommand(ctx))
	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newKeysCommand(ctx))
	rootCmd.AddCommand(newLoadCommand(ctx))

	return rootCmd
}
