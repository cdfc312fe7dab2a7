// Package pipeline sequences the episode stages: avatars, speech
// synthesis, audio mixing, video assembly, and publication.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsroom-labs/debatecast/internal/audio"
	"github.com/newsroom-labs/debatecast/internal/avatar"
	"github.com/newsroom-labs/debatecast/internal/bus"
	"github.com/newsroom-labs/debatecast/internal/character"
	"github.com/newsroom-labs/debatecast/internal/config"
	"github.com/newsroom-labs/debatecast/internal/ffmpeg"
	"github.com/newsroom-labs/debatecast/internal/publish"
	"github.com/newsroom-labs/debatecast/internal/script"
	"github.com/newsroom-labs/debatecast/internal/store"
	"github.com/newsroom-labs/debatecast/internal/tts"
	"github.com/newsroom-labs/debatecast/internal/video"
)

// Stage names, in run order.
const (
	StageAvatars = "avatars"
	StageTTS     = "tts"
	StageMix     = "mix"
	StageVideo   = "video"
	StagePublish = "publish"
)

var stageOrder = []string{StageAvatars, StageTTS, StageMix, StageVideo, StagePublish}

// Deps are the injectable collaborators. Zero fields get production
// defaults in New.
type Deps struct {
	Runner    ffmpeg.Runner
	Voices    tts.Provider
	Catalog   *store.Store
	Publisher *publish.Publisher
	Events    *bus.Publisher
}

// RunOptions select what a single invocation does.
type RunOptions struct {
	ScriptPath string
	// EpisodeID overrides the default episode_YYYYMMDD identifier.
	EpisodeID string
	// ResumeFrom skips earlier stages whose outputs already exist.
	ResumeFrom string
	// SkipPublish stops after the video stage.
	SkipPublish bool
	// KeepWork leaves intermediates on disk for inspection.
	KeepWork bool
}

// Result reports where a finished run left its artifacts.
type Result struct {
	RunID     string
	EpisodeID string
	AudioPath string
	VideoPath string
	AudioURL  string
	VideoURL  string
}

type Pipeline struct {
	cfg    config.Config
	log    *slog.Logger
	deps   Deps
	tracer trace.Tracer
	clock  func() time.Time
}

// New builds a pipeline. Catalog, Publisher, and Events may be nil;
// the publish stage then requires SkipPublish.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Pipeline, error) {
	if deps.Runner == nil {
		timeout := time.Duration(cfg.Video.FFmpegTimeout) * time.Millisecond
		runner, err := ffmpeg.NewExecRunner(cfg.Video.FFmpegCommand, timeout, log)
		if err != nil {
			return nil, err
		}
		deps.Runner = runner
	}
	if deps.Voices == nil {
		voices, err := tts.NewRegistry(cfg.Voices)
		if err != nil {
			return nil, err
		}
		deps.Voices = voices
	}
	return &Pipeline{
		cfg:    cfg,
		log:    log.With(slog.String("component", "pipeline")),
		deps:   deps,
		tracer: otel.Tracer("debatecast/pipeline"),
		clock:  time.Now,
	}, nil
}

// Run executes the stages in order and returns the artifact locations.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	s, err := script.Load(opts.ScriptPath)
	if err != nil {
		return Result{}, err
	}

	episodeID := opts.EpisodeID
	if episodeID == "" {
		episodeID = "episode_" + p.clock().UTC().Format("20060102")
	}
	runID := uuid.NewString()

	res := Result{RunID: runID, EpisodeID: episodeID}
	log := p.log.With(slog.String("run_id", runID), slog.String("episode_id", episodeID))
	log.Info("pipeline started", slog.String("title", s.Title), slog.Int("lines", len(s.Lines)))

	p.deps.Events.EpisodeStarted(runID, episodeID)

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("episode.id", episodeID),
			attribute.Int("script.lines", len(s.Lines)),
		))
	defer span.End()

	run := newRun(p, s, episodeID, opts)
	if err := run.prepare(); err != nil {
		return res, err
	}

	for _, stage := range stageOrder {
		if stage == StagePublish && opts.SkipPublish {
			break
		}
		if !run.shouldRun(stage) {
			if err := run.restore(stage); err != nil {
				return res, fmt.Errorf("resume from %s: %w", opts.ResumeFrom, err)
			}
			log.Info("stage skipped", slog.String("stage", stage))
			continue
		}
		if err := p.runStage(ctx, log, run, runID, stage); err != nil {
			span.SetStatus(codes.Error, err.Error())
			p.deps.Events.EpisodeFailed(runID, episodeID, stage, err)
			return res, err
		}
	}

	res.AudioPath = run.audioPath
	res.VideoPath = run.videoPath
	res.AudioURL = run.audioURL
	res.VideoURL = run.videoURL

	if !opts.KeepWork {
		if err := run.cleanup(); err != nil {
			log.Warn("cleanup failed", slog.String("error", err.Error()))
		}
	}

	log.Info("pipeline finished",
		slog.String("audio", res.AudioPath),
		slog.String("video", res.VideoPath))
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, log *slog.Logger, run *run, runID, stage string) error {
	ctx, span := p.tracer.Start(ctx, "stage."+stage)
	defer span.End()

	started := p.clock()
	var err error
	switch stage {
	case StageAvatars:
		err = run.stageAvatars()
	case StageTTS:
		err = run.stageTTS(ctx)
	case StageMix:
		err = run.stageMix(ctx)
	case StageVideo:
		err = run.stageVideo(ctx)
	case StagePublish:
		err = run.stagePublish(ctx, runID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("stage %s: %w", stage, err)
	}

	log.Info("stage completed",
		slog.String("stage", stage),
		slog.Duration("elapsed", p.clock().Sub(started)))
	p.deps.Events.StageCompleted(runID, run.episodeID, stage)
	return nil
}

// run carries per-invocation state between stages.
type run struct {
	p         *Pipeline
	script    *script.Script
	episodeID string
	opts      RunOptions

	workDir    string
	voiceDir   string
	segmentDir string
	avatarDir  string
	outputDir  string

	avatars   *video.AvatarSet
	fonts     *avatar.FontSet
	clips     []string
	audioPath string
	videoPath string
	audioURL  string
	videoURL  string
}

func newRun(p *Pipeline, s *script.Script, episodeID string, opts RunOptions) *run {
	workDir := filepath.Join(p.cfg.Workspace.WorkDir, episodeID)
	return &run{
		p:          p,
		script:     s,
		episodeID:  episodeID,
		opts:       opts,
		workDir:    workDir,
		voiceDir:   filepath.Join(workDir, "voice"),
		segmentDir: filepath.Join(workDir, "video"),
		avatarDir:  filepath.Join(p.cfg.Workspace.DataDir, "avatars"),
		outputDir:  filepath.Join(p.cfg.Workspace.DataDir, "output"),
	}
}

func (r *run) prepare() error {
	for _, dir := range []string{r.voiceDir, r.segmentDir, r.avatarDir, r.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	r.fonts = avatar.LoadFonts(r.p.cfg.Video.FontPaths, r.p.log)
	r.audioPath = filepath.Join(r.outputDir, r.episodeID+".mp3")
	r.videoPath = filepath.Join(r.outputDir, r.episodeID+".mp4")
	return nil
}

// shouldRun reports whether stage executes, honoring ResumeFrom.
func (r *run) shouldRun(stage string) bool {
	if r.opts.ResumeFrom == "" {
		return true
	}
	return stageIndex(stage) >= stageIndex(r.opts.ResumeFrom)
}

func stageIndex(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return len(stageOrder)
}

// restore rebuilds the in-memory state a skipped stage would have
// produced, verifying its on-disk outputs exist.
func (r *run) restore(stage string) error {
	switch stage {
	case StageAvatars:
		return r.stageAvatars() // cache mode makes this cheap and idempotent
	case StageTTS:
		clips := make([]string, 0, len(r.script.Lines))
		for i, line := range r.script.Lines {
			clip := filepath.Join(r.voiceDir, fmt.Sprintf("%03d_%s.wav", i, line.Speaker))
			if _, err := os.Stat(clip); err != nil {
				return fmt.Errorf("missing voice clip %s", clip)
			}
			clips = append(clips, clip)
		}
		r.clips = clips
	case StageMix:
		if _, err := os.Stat(r.audioPath); err != nil {
			return fmt.Errorf("missing mixed audio %s", r.audioPath)
		}
	case StageVideo:
		if _, err := os.Stat(r.videoPath); err != nil {
			return fmt.Errorf("missing rendered video %s", r.videoPath)
		}
	}
	return nil
}

func (r *run) stageAvatars() error {
	characters, err := character.Load(r.p.cfg.Characters.Path)
	if err != nil {
		return err
	}

	mode, err := avatar.CacheModeFromString(r.p.cfg.Video.AvatarCache)
	if err != nil {
		return err
	}
	gen, err := avatar.NewGenerator(r.avatarDir, r.p.cfg.Video.Width, r.p.cfg.Video.Height, mode, r.fonts, r.p.log)
	if err != nil {
		return err
	}

	// Avatars are generated in order of first appearance so the
	// fallback avatar is the first voice heard.
	set := video.NewAvatarSet()
	for _, line := range r.script.Lines {
		if _, ok := set.Lookup(line.Speaker); ok {
			continue
		}
		c := character.ApplyDefaults(line.Speaker, characters[line.Speaker])
		path, err := gen.Generate(line.Speaker, c)
		if err != nil {
			return fmt.Errorf("avatar for %s: %w", line.Speaker, err)
		}
		set.Add(line.Speaker, path)
	}
	r.avatars = set
	return nil
}

func (r *run) stageTTS(ctx context.Context) error {
	clips, err := tts.SynthesizeLines(ctx, r.p.deps.Voices, r.script.Lines, r.voiceDir)
	if err != nil {
		return err
	}
	r.clips = clips
	return nil
}

func (r *run) stageMix(ctx context.Context) error {
	mixer := audio.NewMixer(r.p.deps.Runner, r.p.cfg.Audio, r.p.log)
	_, err := mixer.Mix(ctx, r.clips, r.voiceDir, r.audioPath)
	return err
}

func (r *run) stageVideo(ctx context.Context) error {
	fontFile, err := r.fonts.DrawtextPath(filepath.Join(r.p.cfg.Workspace.DataDir, "fonts"))
	if err != nil {
		return err
	}

	cfg := r.p.cfg.Video
	segments := video.NewSegmentRenderer(r.p.deps.Runner, fontFile, cfg.SegmentPreset, cfg.CRF, r.p.log)
	concat := video.NewConcatenator(r.p.deps.Runner, cfg.FinalPreset, cfg.AudioBitrate, cfg.CRF, r.p.log)
	gen, err := video.NewGenerator(r.segmentDir, r.p.cfg.Characters.DefaultSpeaker, segments, concat, r.p.log)
	if err != nil {
		return err
	}

	_, err = gen.Generate(ctx, r.script, r.avatars, r.audioPath, r.videoPath)
	return err
}

func (r *run) stagePublish(ctx context.Context, runID string) error {
	if r.p.deps.Publisher == nil {
		return fmt.Errorf("publishing not configured")
	}

	duration := r.script.TotalDurationSec
	if duration <= 0 {
		for _, line := range r.script.Lines {
			duration += line.Duration()
		}
	}

	ep := store.Episode{
		ID:          r.episodeID,
		Title:       r.script.Title,
		Description: r.script.TopicSummary,
		PubDate:     r.p.clock().UTC(),
		DurationSec: duration,
	}
	published, err := r.p.deps.Publisher.PublishEpisode(ctx, ep, publish.Artifacts{
		AudioPath: r.audioPath,
		VideoPath: r.videoPath,
	})
	if err != nil {
		return err
	}
	r.audioURL = published.AudioURL
	r.videoURL = published.VideoURL
	r.p.deps.Events.EpisodePublished(runID, r.episodeID)
	return nil
}

// cleanup removes the per-run work tree. Final artifacts under the
// output dir and the avatar cache are untouched.
func (r *run) cleanup() error {
	if err := video.Cleanup(r.segmentDir); err != nil {
		return err
	}
	return os.RemoveAll(r.workDir)
}
