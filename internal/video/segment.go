package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
)

// SegmentRenderer turns one timeline segment into a short H.264 clip:
// the avatar image held static for the segment's duration with the
// speaker name overlaid near the top in a semi-opaque box.
type SegmentRenderer struct {
	runner   ffmpeg.Runner
	fontFile string
	preset   string
	crf      int
	log      *slog.Logger
}

func NewSegmentRenderer(runner ffmpeg.Runner, fontFile, preset string, crf int, log *slog.Logger) *SegmentRenderer {
	return &SegmentRenderer{
		runner:   runner,
		fontFile: fontFile,
		preset:   preset,
		crf:      crf,
		log:      log.With(slog.String("component", "segment-renderer")),
	}
}

// Render produces outputPath from the avatar image. If outputPath
// already exists the render is skipped and the file reused; this is a
// cache for repeated runs, not a correctness requirement.
func (r *SegmentRenderer) Render(ctx context.Context, avatarPath string, duration float64, label, outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		r.log.Debug("segment exists, skipping render", slog.String("path", outputPath))
		return nil
	}

	filter := fmt.Sprintf(
		"drawtext=text='%s':fontfile=%s:fontsize=48:fontcolor=white:x=(w-text_w)/2:y=50:box=1:boxcolor=black@0.6:boxborderw=10",
		escapeDrawtext(label), r.fontFile,
	)

	args := []string{
		"-y",
		"-loop", "1",
		"-i", avatarPath,
		"-vf", filter,
		"-t", formatSeconds(duration),
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264",
		"-preset", r.preset,
		"-crf", fmt.Sprintf("%d", r.crf),
		outputPath,
	}

	res, err := r.runner.Run(ctx, args...)
	if err != nil {
		return fmt.Errorf("render segment %s: %w", outputPath, err)
	}
	if res.ExitCode != 0 {
		return &RenderError{Op: "render segment", ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// escapeDrawtext escapes characters the drawtext filter treats
// specially inside a single-quoted text value.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(s)
}

func formatSeconds(d float64) string {
	return fmt.Sprintf("%.3f", d)
}
