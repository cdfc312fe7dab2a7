package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsroom-labs/debatecast/internal/bus"
	"github.com/newsroom-labs/debatecast/internal/pipeline"
	"github.com/newsroom-labs/debatecast/internal/publish"
	"github.com/newsroom-labs/debatecast/internal/store"
)

func newRunCmd() *cobra.Command {
	var opts pipeline.RunOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: avatars, speech, mix, video, publish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.ScriptPath, "script", "s", "", "Debate script JSON")
	cmd.MarkFlagRequired("script")
	cmd.Flags().StringVar(&opts.EpisodeID, "episode-id", "", "Override the episode identifier")
	cmd.Flags().StringVar(&opts.ResumeFrom, "resume-from", "", "Resume at a stage (avatars, tts, mix, video, publish)")
	cmd.Flags().BoolVar(&opts.SkipPublish, "skip-publish", false, "Stop after rendering, do not upload")
	cmd.Flags().BoolVar(&opts.KeepWork, "keep-work", false, "Keep intermediate files")
	return cmd
}

func runPipeline(parent context.Context, opts pipeline.RunOptions) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, metrics, err := pipeline.SetupTelemetry(cfg, log)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	if bind := cfg.Telemetry.PrometheusBind; bind != "" && metrics != nil {
		srv := &http.Server{Addr: bind, Handler: metrics, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer srv.Close()
	}

	events, err := bus.Connect(ctx, cfg.Bus, log)
	if err != nil {
		return err
	}
	defer events.Close()

	deps := pipeline.Deps{Events: events}
	if !opts.SkipPublish {
		catalog, err := store.Open(ctx, cfg.Store, log)
		if err != nil {
			return err
		}
		defer catalog.Close()

		objects, err := publish.NewStore(cfg.Storage)
		if err != nil {
			return err
		}
		deps.Catalog = catalog
		deps.Publisher = publish.NewPublisher(objects, catalog, cfg.Feed, log)
	}

	p, err := pipeline.New(cfg, log, deps)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("episode %s\n  audio: %s\n  video: %s\n", res.EpisodeID, res.AudioPath, res.VideoPath)
	if res.AudioURL != "" {
		fmt.Printf("  audio url: %s\n  video url: %s\n", res.AudioURL, res.VideoURL)
	}
	return nil
}
