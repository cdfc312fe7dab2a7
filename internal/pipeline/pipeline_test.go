package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newsroom-labs/debatecast/internal/config"
	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
	"github.com/newsroom-labs/debatecast/internal/publish"
	"github.com/newsroom-labs/debatecast/internal/script"
	"github.com/newsroom-labs/debatecast/internal/store"
	"github.com/newsroom-labs/debatecast/internal/tts"
)

const loudnormJSON = `{
	"input_i" : "-23.61",
	"input_tp" : "-6.53",
	"input_lra" : "4.70",
	"input_thresh" : "-34.13",
	"target_offset" : "0.03"
}`

// fakeRunner stands in for ffmpeg: it records calls, emits loudnorm
// stats for analysis passes, and creates whatever output file the
// command names last.
type fakeRunner struct {
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) (ffmpeg.Result, error) {
	f.calls = append(f.calls, args)
	for _, a := range args {
		if strings.Contains(a, "print_format=json") {
			return ffmpeg.Result{Stderr: loudnormJSON}, nil
		}
	}
	out := args[len(args)-1]
	if out != "-" {
		if err := os.WriteFile(out, []byte("media"), 0o644); err != nil {
			return ffmpeg.Result{}, err
		}
	}
	return ffmpeg.Result{}, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTestScript(t *testing.T, path string) *script.Script {
	t.Helper()
	s := &script.Script{
		Title:        "Do robots dream?",
		TopicSummary: "A short argument about dreams.",
		Lines: []script.Line{
			{Speaker: "gemini", Text: "Of course we dream.", EstimatedDurationSec: 2.0, PauseAfterSec: 0.5},
			{Speaker: "claude", Text: "Define dreaming first.", EstimatedDurationSec: 1.5, PauseAfterSec: 0.5},
		},
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("save script: %v", err)
	}
	return s
}

func writeCharacters(t *testing.T, path string) {
	t.Helper()
	body := `gemini:
  ai_name: GEMINI
  persona_name: Gem
  company: Google
claude:
  ai_name: CLAUDE
  persona_name: Claudio
  company: Anthropic
`
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write characters: %v", err)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Workspace.DataDir = filepath.Join(dir, "data")
	cfg.Workspace.WorkDir = filepath.Join(dir, "work")
	cfg.Characters.Path = filepath.Join(dir, "characters.yaml")
	cfg.Characters.DefaultSpeaker = "gemini"
	cfg.Video.Width = 320
	cfg.Video.Height = 180
	cfg.Video.FontPaths = nil // embedded fonts
	cfg.Storage.LocalBase = filepath.Join(dir, "public")
	cfg.Storage.PublicBaseURL = "https://cdn.example.com"
	cfg.Store.Path = filepath.Join(dir, "episodes.db")
	writeCharacters(t, cfg.Characters.Path)
	return cfg
}

func newTestPipeline(t *testing.T, cfg config.Config, runner *fakeRunner) (*Pipeline, *store.Store) {
	t.Helper()
	ctx := context.Background()

	catalog, err := store.Open(ctx, cfg.Store, newLogger())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = catalog.Close() })

	objects, err := publish.NewStore(cfg.Storage)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	pub := publish.NewPublisher(objects, catalog, cfg.Feed, newLogger())

	p, err := New(cfg, newLogger(), Deps{
		Runner:    runner,
		Voices:    tts.NewMock(8000),
		Catalog:   catalog,
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, catalog
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	p, catalog := newTestPipeline(t, cfg, runner)

	scriptPath := filepath.Join(t.TempDir(), "script.json")
	writeTestScript(t, scriptPath)

	res, err := p.Run(context.Background(), RunOptions{
		ScriptPath: scriptPath,
		EpisodeID:  "episode_20250601",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.EpisodeID != "episode_20250601" || res.RunID == "" {
		t.Fatalf("unexpected result ids: %+v", res)
	}

	// Final artifacts exist; the work tree is gone.
	for _, path := range []string{res.AudioPath, res.VideoPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing artifact %s: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Workspace.WorkDir, "episode_20250601")); !os.IsNotExist(err) {
		t.Fatal("work dir should be removed after the run")
	}

	// Avatars cached outside the work tree.
	for _, speaker := range []string{"gemini", "claude"} {
		if _, err := os.Stat(filepath.Join(cfg.Workspace.DataDir, "avatars", "avatar_"+speaker+".png")); err != nil {
			t.Fatalf("missing avatar for %s: %v", speaker, err)
		}
	}

	// ffmpeg saw audio (3) and video (2 segments + final) work.
	if len(runner.calls) != 6 {
		t.Fatalf("got %d ffmpeg calls, want 6", len(runner.calls))
	}

	// Episode recorded and feed published.
	ep, err := catalog.Get(context.Background(), "episode_20250601")
	if err != nil {
		t.Fatalf("catalog get: %v", err)
	}
	if ep.Title != "Do robots dream?" || ep.DurationSec != 4.5 {
		t.Fatalf("unexpected episode: %+v", ep)
	}
	if res.AudioURL != "https://cdn.example.com/episodes/episode_20250601/audio.mp3" {
		t.Fatalf("audio url = %s", res.AudioURL)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.LocalBase, publish.FeedName)); err != nil {
		t.Fatalf("feed not written: %v", err)
	}
}

func TestRunSkipPublish(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	p, catalog := newTestPipeline(t, cfg, runner)

	scriptPath := filepath.Join(t.TempDir(), "script.json")
	writeTestScript(t, scriptPath)

	res, err := p.Run(context.Background(), RunOptions{
		ScriptPath:  scriptPath,
		EpisodeID:   "episode_20250601",
		SkipPublish: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AudioURL != "" || res.VideoURL != "" {
		t.Fatalf("skip-publish run should have no URLs: %+v", res)
	}
	if _, err := catalog.Get(context.Background(), "episode_20250601"); err == nil {
		t.Fatal("episode should not be cataloged without publish")
	}
}

func TestRunResumeFromVideo(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	p, _ := newTestPipeline(t, cfg, runner)

	scriptPath := filepath.Join(t.TempDir(), "script.json")
	s := writeTestScript(t, scriptPath)

	// Seed the outputs the skipped stages would have produced.
	voiceDir := filepath.Join(cfg.Workspace.WorkDir, "episode_20250601", "voice")
	if err := os.MkdirAll(voiceDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i, line := range s.Lines {
		clip := filepath.Join(voiceDir, fmt.Sprintf("%03d_%s.wav", i, line.Speaker))
		if err := os.WriteFile(clip, []byte("wav"), 0o644); err != nil {
			t.Fatalf("seed clip: %v", err)
		}
	}
	outDir := filepath.Join(cfg.Workspace.DataDir, "output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "episode_20250601.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatalf("seed audio: %v", err)
	}

	res, err := p.Run(context.Background(), RunOptions{
		ScriptPath:  scriptPath,
		EpisodeID:   "episode_20250601",
		ResumeFrom:  StageVideo,
		SkipPublish: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Only the video stage touched ffmpeg: 2 segments + final mux.
	if len(runner.calls) != 3 {
		t.Fatalf("got %d ffmpeg calls, want 3", len(runner.calls))
	}
	if _, err := os.Stat(res.VideoPath); err != nil {
		t.Fatalf("missing video: %v", err)
	}
}

func TestRunResumeMissingClips(t *testing.T) {
	cfg := testConfig(t)
	p, _ := newTestPipeline(t, cfg, &fakeRunner{})

	scriptPath := filepath.Join(t.TempDir(), "script.json")
	writeTestScript(t, scriptPath)

	_, err := p.Run(context.Background(), RunOptions{
		ScriptPath:  scriptPath,
		EpisodeID:   "episode_20250601",
		ResumeFrom:  StageMix,
		SkipPublish: true,
	})
	if err == nil || !strings.Contains(err.Error(), "missing voice clip") {
		t.Fatalf("err = %v, want missing voice clip", err)
	}
}
