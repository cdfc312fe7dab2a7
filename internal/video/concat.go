package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
)

// ManifestName is the concat-demuxer manifest written into the work
// directory.
const ManifestName = "concat_list.txt"

// Concatenator joins rendered segment clips and attaches the episode
// audio in a single media-tool invocation.
type Concatenator struct {
	runner       ffmpeg.Runner
	preset       string
	audioBitrate string
	crf          int
	log          *slog.Logger
}

func NewConcatenator(runner ffmpeg.Runner, preset, audioBitrate string, crf int, log *slog.Logger) *Concatenator {
	return &Concatenator{
		runner:       runner,
		preset:       preset,
		audioBitrate: audioBitrate,
		crf:          crf,
		log:          log.With(slog.String("component", "concatenator")),
	}
}

// WriteManifest writes the concat-demuxer manifest: one quoted absolute
// clip path per line, in playback order. The line order determines the
// final video's playback order and must match the segment sequence.
func WriteManifest(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path %s: %w", clip, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// RenderFinal concatenates the segment clips listed in the manifest and
// muxes in the audio track. Clips are re-encoded (not stream-copied) so
// heterogeneous segment encodes end up in one consistent codec and
// pixel format. The -shortest flag caps the output at the shorter of
// the two streams.
func (c *Concatenator) RenderFinal(ctx context.Context, manifestPath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-preset", c.preset,
		"-crf", fmt.Sprintf("%d", c.crf),
		"-c:a", "aac",
		"-b:a", c.audioBitrate,
		"-shortest",
		outputPath,
	}

	c.log.Info("rendering final video",
		slog.String("manifest", manifestPath),
		slog.String("audio", audioPath),
		slog.String("output", outputPath))

	res, err := c.runner.Run(ctx, args...)
	if err != nil {
		return fmt.Errorf("render final video: %w", err)
	}
	if res.ExitCode != 0 {
		return &RenderError{Op: "render final video", ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}
