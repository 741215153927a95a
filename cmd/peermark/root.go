// Command peermark transcribes scanned peer-grading score sheets through a
// vision model and computes trimmed-mean final grades, masking student
// identities before any page leaves the machine.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool

	rootCmd := &cobra.Command{
		Use:           "peermark",
		Short:         "Transcribe and grade scanned peer-grading score sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verboseFlag {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "peermark.yaml", "Run configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newProcessCommand(&configFlag))
	rootCmd.AddCommand(newFinalizeCommand(&configFlag))
	rootCmd.AddCommand(newMaskCommand(&configFlag))
	rootCmd.AddCommand(newRosterCommand(&configFlag))

	return rootCmd
}
