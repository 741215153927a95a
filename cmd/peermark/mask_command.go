package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"peermark/infrastructure/raster"
	"peermark/internal/application"
)

func newMaskCommand(configFlag *string) *cobra.Command {
	var outDir string
	var preview bool

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Render masked page images without uploading anything",
		Long: `Renders every sheet with the identity regions blanked, exactly as they
would be sent to the transcription service. With --preview the regions are
traced in red instead of blanked, for calibrating the layout against real
scans.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := application.LoadConfig(*configFlag)
			if err != nil {
				return err
			}

			dir := outDir
			if dir == "" {
				dir = cfg.Privacy.PreviewDir
			}
			if dir == "" {
				dir = filepath.Join(cfg.Output.Dir, "masked")
			}

			pipeline, err := application.NewPipeline(cfg, application.Dependencies{
				Rasterizer: raster.NewRenderer(),
				Logger:     slog.Default(),
			})
			if err != nil {
				return err
			}

			if err := pipeline.RunMask(ctx, dir, preview); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Masked pages written to %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for masked pages")
	cmd.Flags().BoolVar(&preview, "preview", false, "Outline mask regions instead of blanking them")
	return cmd
}
