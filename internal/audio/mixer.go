// Package audio assembles the per-line voice clips into the episode
// soundtrack: concatenation, padding silence, optional background
// music, and EBU R128 loudness normalization.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/newsroom-labs/debatecast/internal/config"
	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
)

// ManifestName is the concat demuxer list for voice clips.
const ManifestName = "voice_list.txt"

// MixError reports a failed ffmpeg invocation during mixing with its
// stderr preserved verbatim.
type MixError struct {
	Op       string
	ExitCode int
	Stderr   string
}

func (e *MixError) Error() string {
	return fmt.Sprintf("audio %s: ffmpeg exited %d: %s", e.Op, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// LoudnessStats holds the measured values from the first loudnorm pass.
type LoudnessStats struct {
	InputI      string
	InputTP     string
	InputLRA    string
	InputThresh string
	Offset      string
}

// Mixer drives ffmpeg to produce the final MP3.
type Mixer struct {
	runner ffmpeg.Runner
	cfg    config.AudioConfig
	log    *slog.Logger
}

func NewMixer(runner ffmpeg.Runner, cfg config.AudioConfig, log *slog.Logger) *Mixer {
	return &Mixer{runner: runner, cfg: cfg, log: log.With(slog.String("component", "audio"))}
}

// Mix concatenates voicePaths in order, applies intro/outro silence and
// optional background music, normalizes loudness in two passes, and
// writes an MP3 to outputPath. Intermediates live under workDir.
func (m *Mixer) Mix(ctx context.Context, voicePaths []string, workDir, outputPath string) (string, error) {
	if len(voicePaths) == 0 {
		return "", fmt.Errorf("no voice clips to mix")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	manifest := filepath.Join(workDir, ManifestName)
	if err := writeManifest(manifest, voicePaths); err != nil {
		return "", err
	}

	combined := filepath.Join(workDir, "voice_combined.wav")
	if err := m.concat(ctx, manifest, combined); err != nil {
		return "", err
	}

	source := combined
	if m.cfg.BGMPath != "" {
		mixed := filepath.Join(workDir, "voice_bgm.wav")
		if err := m.addBGM(ctx, combined, mixed); err != nil {
			return "", err
		}
		source = mixed
	}

	stats, err := m.measureLoudness(ctx, source)
	if err != nil {
		m.log.Warn("loudness measurement failed, using single-pass normalization", slog.String("error", err.Error()))
		stats = nil
	}
	if err := m.normalize(ctx, source, outputPath, stats); err != nil {
		return "", err
	}

	m.log.Info("mixed episode audio",
		slog.Int("clips", len(voicePaths)),
		slog.String("output", outputPath))
	return outputPath, nil
}

func writeManifest(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write voice manifest: %w", err)
	}
	return nil
}

// concat joins the clips and pads the episode with leading and trailing
// silence in a single decode.
func (m *Mixer) concat(ctx context.Context, manifest, output string) error {
	filters := []string{
		fmt.Sprintf("adelay=%d:all=1", m.cfg.IntroSilenceMS),
		fmt.Sprintf("apad=pad_dur=%gms", float64(m.cfg.OutroSilenceMS)),
		fmt.Sprintf("aresample=%d", m.cfg.SampleRate),
	}
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-af", strings.Join(filters, ","),
		"-ac", "1",
		output,
	}
	return m.run(ctx, "concat", args)
}

func (m *Mixer) addBGM(ctx context.Context, voice, output string) error {
	filter := fmt.Sprintf("[1:a]volume=%gdB[bg];[0:a][bg]amix=inputs=2:duration=first:dropout_transition=0[out]", m.cfg.BGMVolumeDB)
	args := []string{
		"-y",
		"-i", voice,
		"-stream_loop", "-1",
		"-i", m.cfg.BGMPath,
		"-filter_complex", filter,
		"-map", "[out]",
		output,
	}
	return m.run(ctx, "bgm", args)
}

func (m *Mixer) loudnormTarget() string {
	return fmt.Sprintf("I=%g:TP=%g:LRA=%g", m.cfg.TargetLUFS, m.cfg.PeakDB, m.cfg.LoudnessRange)
}

// measureLoudness runs the analysis pass. ffmpeg prints the stats as a
// JSON object at the end of stderr.
func (m *Mixer) measureLoudness(ctx context.Context, input string) (*LoudnessStats, error) {
	args := []string{
		"-i", input,
		"-af", fmt.Sprintf("loudnorm=%s:print_format=json", m.loudnormTarget()),
		"-f", "null",
		"-",
	}
	res, err := m.runner.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("loudness analysis: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, &MixError{Op: "measure", ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return parseLoudnessStats(res.Stderr)
}

func parseLoudnessStats(stderr string) (*LoudnessStats, error) {
	start := strings.LastIndex(stderr, "{")
	end := strings.LastIndex(stderr, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no loudnorm stats in ffmpeg output")
	}
	blob := stderr[start : end+1]
	if !gjson.Valid(blob) {
		return nil, fmt.Errorf("malformed loudnorm stats")
	}
	stats := &LoudnessStats{
		InputI:      gjson.Get(blob, "input_i").String(),
		InputTP:     gjson.Get(blob, "input_tp").String(),
		InputLRA:    gjson.Get(blob, "input_lra").String(),
		InputThresh: gjson.Get(blob, "input_thresh").String(),
		Offset:      gjson.Get(blob, "target_offset").String(),
	}
	if stats.InputI == "" || stats.InputTP == "" {
		return nil, fmt.Errorf("incomplete loudnorm stats")
	}
	return stats, nil
}

// normalize encodes the final MP3. With stats it runs the linear
// second pass; without, loudnorm falls back to its dynamic mode.
func (m *Mixer) normalize(ctx context.Context, input, output string, stats *LoudnessStats) error {
	filter := fmt.Sprintf("loudnorm=%s", m.loudnormTarget())
	if stats != nil {
		filter += fmt.Sprintf(":measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
			stats.InputI, stats.InputTP, stats.InputLRA, stats.InputThresh, stats.Offset)
	}
	args := []string{
		"-y",
		"-i", input,
		"-af", filter,
		"-ar", fmt.Sprintf("%d", m.cfg.SampleRate),
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		output,
	}
	return m.run(ctx, "normalize", args)
}

func (m *Mixer) run(ctx context.Context, op string, args []string) error {
	res, err := m.runner.Run(ctx, args...)
	if err != nil {
		return fmt.Errorf("audio %s: %w", op, err)
	}
	if res.ExitCode != 0 {
		return &MixError{Op: op, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}
