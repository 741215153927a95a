package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"peermark/internal/application"
	"peermark/internal/roster"
)

func newRosterCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "Validate and display the configured class roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := application.LoadConfig(*configFlag)
			if err != nil {
				return err
			}
			if cfg.Roster.Path == "" {
				return fmt.Errorf("no roster configured (set roster.path)")
			}

			students, err := roster.Load(cfg.Roster.Path)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Row", "Roll Number", "Name"})
			for _, s := range students {
				tw.AppendRow(table.Row{s.Row, s.RollNumber, s.Name})
			}

			fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			fmt.Fprintf(cmd.OutOrStdout(), "%d students, roster is valid\n", len(students))
			return nil
		},
	}
}
