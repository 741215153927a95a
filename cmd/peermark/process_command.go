package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"peermark/infrastructure/metrics"
	"peermark/infrastructure/raster"
	"peermark/internal/application"
)

func newProcessCommand(configFlag *string) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Transcribe every sheet in the input directory and write grades",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := application.LoadConfig(*configFlag)
			if err != nil {
				return err
			}
			if noCache {
				off := false
				cfg.Cache.Enabled = &off
			}

			collector := metrics.NewPrometheusMetrics(nil)

			transcriber, err := application.BuildTranscriber(cfg, collector)
			if err != nil {
				return err
			}
			cache, err := application.BuildCache(cfg)
			if err != nil {
				return err
			}
			if cache != nil {
				defer cache.Close()
			}

			pipeline, err := application.NewPipeline(cfg, application.Dependencies{
				Rasterizer:  raster.NewRenderer(),
				Transcriber: transcriber,
				Cache:       cache,
				Metrics:     collector,
				Logger:      slog.Default(),
			})
			if err != nil {
				return err
			}

			rep, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rep.RenderSummary())
			fmt.Fprintf(cmd.OutOrStdout(), "\nResults written to %s\n", cfg.Output.Dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Transcribe every sheet fresh, ignoring the cache")
	return cmd
}
