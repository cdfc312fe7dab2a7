package publish

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/newsroom-labs/debatecast/internal/config"
	"github.com/newsroom-labs/debatecast/internal/store"
)

// Artifacts are the local files produced by a pipeline run.
type Artifacts struct {
	AudioPath string
	VideoPath string
}

// Publisher uploads episode artifacts, records them in the catalog,
// and regenerates the feed.
type Publisher struct {
	store   ObjectStore
	catalog *store.Store
	feedCfg config.FeedConfig
	log     *slog.Logger
	clock   func() time.Time
}

func NewPublisher(objects ObjectStore, catalog *store.Store, feedCfg config.FeedConfig, log *slog.Logger) *Publisher {
	return &Publisher{
		store:   objects,
		catalog: catalog,
		feedCfg: feedCfg,
		log:     log.With(slog.String("component", "publish")),
		clock:   time.Now,
	}
}

// PublishEpisode uploads the artifacts under episodes/<id>/, saves the
// episode to the catalog, and refreshes the feed. The returned episode
// carries the assigned URLs and audio size.
func (p *Publisher) PublishEpisode(ctx context.Context, ep store.Episode, art Artifacts) (store.Episode, error) {
	audioKey := fmt.Sprintf("episodes/%s/audio.mp3", ep.ID)
	size, err := p.uploadFile(ctx, audioKey, art.AudioPath, "audio/mpeg")
	if err != nil {
		return store.Episode{}, fmt.Errorf("upload audio: %w", err)
	}
	ep.AudioURL = p.store.URL(audioKey)
	ep.AudioSize = size

	if art.VideoPath != "" {
		videoKey := fmt.Sprintf("episodes/%s/video.mp4", ep.ID)
		if _, err := p.uploadFile(ctx, videoKey, art.VideoPath, "video/mp4"); err != nil {
			return store.Episode{}, fmt.Errorf("upload video: %w", err)
		}
		ep.VideoURL = p.store.URL(videoKey)
	}

	if err := p.catalog.Save(ctx, ep); err != nil {
		return store.Episode{}, fmt.Errorf("save episode: %w", err)
	}
	if err := p.RefreshFeed(ctx); err != nil {
		return store.Episode{}, err
	}

	p.log.Info("published episode",
		slog.String("episode_id", ep.ID),
		slog.String("audio_url", ep.AudioURL),
		slog.String("video_url", ep.VideoURL))
	return ep, nil
}

// RefreshFeed rebuilds feed.xml from the catalog and uploads it.
func (p *Publisher) RefreshFeed(ctx context.Context) error {
	episodes, err := p.catalog.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list episodes: %w", err)
	}
	body, err := BuildFeed(p.feedCfg, p.store.URL(FeedName), episodes, p.clock())
	if err != nil {
		return err
	}
	if err := p.store.Upload(ctx, FeedName, bytes.NewReader(body), "application/rss+xml"); err != nil {
		return fmt.Errorf("upload feed: %w", err)
	}
	p.log.Info("refreshed feed", slog.Int("episodes", len(episodes)))
	return nil
}

func (p *Publisher) uploadFile(ctx context.Context, key, path, contentType string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := p.store.Upload(ctx, key, f, contentType); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
