package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"peermark/internal/application"
	"peermark/internal/grading"
	"peermark/internal/report"
)

func newFinalizeCommand(configFlag *string) *cobra.Command {
	var scoresPath string

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Recompute grades from an existing score matrix",
		Long: `Reads a scores.csv written by a previous process run and recomputes the
final grades with the current grading parameters. Nothing is transcribed,
so trim fraction, rounding or no-data policy changes can be applied without
touching the transcription service.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := application.LoadConfig(*configFlag)
			if err != nil {
				return err
			}

			path := scoresPath
			if path == "" {
				path = filepath.Join(cfg.Output.Dir, "scores.csv")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening score matrix: %w", err)
			}
			defer f.Close()

			records, sheets, err := report.ReadScoresCSV(f)
			if err != nil {
				return err
			}

			calc, err := grading.NewCalculator(cfg.Grading)
			if err != nil {
				return err
			}
			grades, err := calc.FinalizeAll(report.Snapshot(records))
			if err != nil {
				return err
			}

			rep := &report.Report{
				RunID:   "finalize",
				Sheets:  sheets,
				Records: records,
				Grades:  grades,
			}

			out, err := os.Create(filepath.Join(cfg.Output.Dir, "grades.csv"))
			if err != nil {
				return fmt.Errorf("creating grades.csv: %w", err)
			}
			defer out.Close()
			if err := rep.WriteGradesCSV(out, cfg.Output.ByteOrderMark); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rep.RenderSummary())
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d grades written to %s\n", len(grades), out.Name())
			return nil
		},
	}

	cmd.Flags().StringVarP(&scoresPath, "scores", "s", "", "Score matrix to read (default <output.dir>/scores.csv)")
	return cmd
}
