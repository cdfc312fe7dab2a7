package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/newsroom-labs/debatecast/internal/script"
)

// Generator assembles the episode video: timeline, per-segment clips,
// concat, and audio mux. The whole pipeline is sequential and
// single-threaded; each tool invocation runs to completion before the
// next begins, and every write goes through this single writer.
type Generator struct {
	workDir        string
	defaultSpeaker string
	segments       *SegmentRenderer
	concat         *Concatenator
	log            *slog.Logger
}

func NewGenerator(workDir, defaultSpeaker string, segments *SegmentRenderer, concat *Concatenator, log *slog.Logger) (*Generator, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Generator{
		workDir:        workDir,
		defaultSpeaker: defaultSpeaker,
		segments:       segments,
		concat:         concat,
		log:            log.With(slog.String("component", "video-generator")),
	}, nil
}

// Generate renders the full episode video and returns outputPath.
// Any render failure aborts immediately; partial segment files are
// left on disk for inspection and removed by an explicit Cleanup call.
func (g *Generator) Generate(ctx context.Context, s *script.Script, avatars *AvatarSet, audioPath, outputPath string) (string, error) {
	timeline, err := BuildTimeline(s, avatars, g.defaultSpeaker)
	if err != nil {
		return "", fmt.Errorf("build timeline: %w", err)
	}

	g.log.Info("rendering video segments", slog.Int("count", len(timeline)))

	clips := make([]string, 0, len(timeline))
	for i, seg := range timeline {
		clip := filepath.Join(g.workDir, fmt.Sprintf("segment_%04d.mp4", i))
		label := strings.ToUpper(seg.Speaker)
		if err := g.segments.Render(ctx, seg.Avatar, seg.Duration, label, clip); err != nil {
			return "", err
		}
		clips = append(clips, clip)
	}

	manifest := filepath.Join(g.workDir, ManifestName)
	if err := WriteManifest(manifest, clips); err != nil {
		return "", err
	}

	if err := g.concat.RenderFinal(ctx, manifest, audioPath, outputPath); err != nil {
		return "", err
	}

	g.log.Info("video generated", slog.String("output", outputPath))
	return outputPath, nil
}

// WorkDir exposes the directory holding transient clips and the
// manifest, for cleanup.
func (g *Generator) WorkDir() string {
	return g.workDir
}
