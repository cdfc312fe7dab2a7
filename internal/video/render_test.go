package video

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
	"github.com/newsroom-labs/debatecast/internal/script"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeRunner records invocations and returns scripted results. When
// createOutput is set, the last argument of each call is written as an
// empty file, mimicking the tool producing its output.
type fakeRunner struct {
	calls        [][]string
	results      []ffmpeg.Result
	err          error
	createOutput bool
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (ffmpeg.Result, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return ffmpeg.Result{}, f.err
	}
	var res ffmpeg.Result
	if len(f.results) > 0 {
		res = f.results[0]
		if len(f.results) > 1 {
			f.results = f.results[1:]
		}
	}
	if f.createOutput && res.ExitCode == 0 {
		out := args[len(args)-1]
		_ = os.WriteFile(out, []byte{}, 0o644)
	}
	return res, nil
}

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestSegmentRenderCommand(t *testing.T) {
	runner := &fakeRunner{}
	r := NewSegmentRenderer(runner, "/fonts/bold.ttf", "ultrafast", 23, newLogger())

	out := filepath.Join(t.TempDir(), "segment_0000.mp4")
	if err := r.Render(context.Background(), "avatar.png", 2.5, "GEMINI", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(runner.calls))
	}
	args := runner.calls[0]
	if !hasArgPair(args, "-i", "avatar.png") {
		t.Fatalf("avatar input missing: %v", args)
	}
	if !hasArgPair(args, "-t", "2.500") {
		t.Fatalf("duration missing: %v", args)
	}
	if !hasArgPair(args, "-preset", "ultrafast") || !hasArgPair(args, "-crf", "23") {
		t.Fatalf("encode settings missing: %v", args)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "drawtext=text='GEMINI'") {
		t.Fatalf("drawtext overlay missing: %v", joined)
	}
	if !strings.Contains(joined, "fontfile=/fonts/bold.ttf") {
		t.Fatalf("font file missing: %v", joined)
	}
	if args[len(args)-1] != out {
		t.Fatalf("output path must be last arg: %v", args)
	}
}

func TestSegmentRenderSkipsExisting(t *testing.T) {
	runner := &fakeRunner{}
	r := NewSegmentRenderer(runner, "/fonts/bold.ttf", "ultrafast", 23, newLogger())

	out := filepath.Join(t.TempDir(), "segment_0000.mp4")
	if err := os.WriteFile(out, []byte("existing"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Render(context.Background(), "avatar.png", 1.0, "CLAUDE", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected render to be skipped, got %d calls", len(runner.calls))
	}
	data, _ := os.ReadFile(out)
	if string(data) != "existing" {
		t.Fatalf("existing clip was modified")
	}
}

func TestSegmentRenderFailure(t *testing.T) {
	runner := &fakeRunner{results: []ffmpeg.Result{{ExitCode: 1, Stderr: "invalid data found"}}}
	r := NewSegmentRenderer(runner, "/fonts/bold.ttf", "ultrafast", 23, newLogger())

	err := r.Render(context.Background(), "avatar.png", 1.0, "CLAUDE", filepath.Join(t.TempDir(), "out.mp4"))
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if !strings.Contains(renderErr.Error(), "invalid data found") {
		t.Fatalf("expected stderr in message, got %q", renderErr.Error())
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`A:B's 100%`)
	want := `A\:B\'s 100\%`
	if got != want {
		t.Fatalf("escapeDrawtext = %q, want %q", got, want)
	}
}

func TestWriteManifestOrder(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, ManifestName)
	clips := []string{
		filepath.Join(dir, "segment_0000.mp4"),
		filepath.Join(dir, "segment_0001.mp4"),
	}
	if err := WriteManifest(manifest, clips); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			t.Fatalf("line %d not in concat format: %q", i, line)
		}
		if !strings.Contains(line, clips[i]) {
			t.Fatalf("line %d out of order: %q", i, line)
		}
	}
}

func TestRenderFinalCommand(t *testing.T) {
	runner := &fakeRunner{}
	c := NewConcatenator(runner, "medium", "192k", 23, newLogger())

	out := filepath.Join(t.TempDir(), "episode.mp4")
	if err := c.RenderFinal(context.Background(), "list.txt", "audio.mp3", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := runner.calls[0]
	if !hasArgPair(args, "-f", "concat") || !hasArgPair(args, "-safe", "0") {
		t.Fatalf("concat demuxer flags missing: %v", args)
	}
	if !hasArgPair(args, "-i", "list.txt") || !hasArgPair(args, "-i", "audio.mp3") {
		t.Fatalf("inputs missing: %v", args)
	}
	if !hasArgPair(args, "-c:a", "aac") || !hasArgPair(args, "-b:a", "192k") {
		t.Fatalf("audio encode missing: %v", args)
	}
	found := false
	for _, a := range args {
		if a == "-shortest" {
			found = true
		}
	}
	if !found {
		t.Fatalf("-shortest missing: %v", args)
	}
}

func TestRenderFinalFailure(t *testing.T) {
	runner := &fakeRunner{results: []ffmpeg.Result{{ExitCode: 1, Stderr: "moov atom not found"}}}
	c := NewConcatenator(runner, "medium", "192k", 23, newLogger())

	err := c.RenderFinal(context.Background(), "list.txt", "audio.mp3", "out.mp4")
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "moov atom not found") {
		t.Fatalf("expected stderr in message, got %q", err.Error())
	}
}

func TestGeneratorStopsAfterFailingSegment(t *testing.T) {
	dir := t.TempDir()
	// First segment succeeds, second fails; no third render, no concat.
	runner := &fakeRunner{
		createOutput: true,
		results: []ffmpeg.Result{
			{},
			{ExitCode: 1, Stderr: "invalid data found"},
		},
	}
	seg := NewSegmentRenderer(runner, "/fonts/bold.ttf", "ultrafast", 23, newLogger())
	concat := NewConcatenator(runner, "medium", "192k", 23, newLogger())
	gen, err := NewGenerator(dir, "chatgpt", seg, concat, newLogger())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	s := &script.Script{Lines: []script.Line{
		{Speaker: "gemini", EstimatedDurationSec: 1, PauseAfterSec: 0.5},
		{Speaker: "claude", EstimatedDurationSec: 1, PauseAfterSec: 0.5},
		{Speaker: "chatgpt", EstimatedDurationSec: 1, PauseAfterSec: 0.5},
	}}
	avatars := avatarSet("gemini", "g.png", "claude", "c.png", "chatgpt", "o.png")

	_, err = gen.Generate(context.Background(), s, avatars, "audio.mp3", filepath.Join(dir, "out.mp4"))
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected pipeline to stop after failure, got %d calls", len(runner.calls))
	}
	if _, statErr := os.Stat(filepath.Join(dir, ManifestName)); !os.IsNotExist(statErr) {
		t.Fatalf("manifest must not be written after failure")
	}
}

func TestGeneratorEndToEnd(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{createOutput: true}
	seg := NewSegmentRenderer(runner, "/fonts/bold.ttf", "ultrafast", 23, newLogger())
	concat := NewConcatenator(runner, "medium", "192k", 23, newLogger())
	gen, err := NewGenerator(dir, "chatgpt", seg, concat, newLogger())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	s := &script.Script{Lines: []script.Line{
		{Speaker: "gemini", Text: "Hello", EstimatedDurationSec: 2.0, PauseAfterSec: 0.5},
		{Speaker: "claude", Text: "Hi back", EstimatedDurationSec: 1.5, PauseAfterSec: 0.5},
	}}
	avatars := avatarSet("gemini", "g.png", "claude", "c.png")

	out, err := gen.Generate(context.Background(), s, avatars, "audio.mp3", filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != filepath.Join(dir, "out.mp4") {
		t.Fatalf("unexpected output path: %q", out)
	}
	// Two segment renders plus one concat/mux.
	if len(runner.calls) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(runner.calls))
	}
	if !hasArgPair(runner.calls[0], "-t", "2.500") || !hasArgPair(runner.calls[1], "-t", "2.000") {
		t.Fatalf("segment durations wrong: %v %v", runner.calls[0], runner.calls[1])
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if !strings.Contains(string(data), "segment_0000.mp4") || !strings.Contains(string(data), "segment_0001.mp4") {
		t.Fatalf("manifest incomplete: %s", data)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment_0000.mp4", "segment_0001.mp4", ManifestName} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "avatars"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	avatar := filepath.Join(dir, "avatars", "avatar_claude.png")
	if err := os.WriteFile(avatar, []byte("png"), 0o644); err != nil {
		t.Fatalf("write avatar: %v", err)
	}
	final := filepath.Join(dir, "episode.mp4")
	if err := os.WriteFile(final, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write final: %v", err)
	}

	if err := Cleanup(dir); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "segment_*.mp4")); len(matches) != 0 {
		t.Fatalf("segments not removed: %v", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); !os.IsNotExist(err) {
		t.Fatal("manifest not removed")
	}
	if _, err := os.Stat(avatar); err != nil {
		t.Fatalf("avatar cache must survive cleanup: %v", err)
	}
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("final output must survive cleanup: %v", err)
	}

	// Second call is a no-op, not an error.
	if err := Cleanup(dir); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
}
