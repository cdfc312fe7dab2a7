// Package store keeps the episode catalog in SQLite. The catalog is
// the source of truth for feed generation and retention pruning.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/newsroom-labs/debatecast/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an episode ID is not in the catalog.
var ErrNotFound = errors.New("episode not found")

// Episode is one published debate.
type Episode struct {
	ID          string
	Title       string
	Description string
	PubDate     time.Time
	AudioURL    string
	VideoURL    string
	AudioSize   int64
	DurationSec float64
	CreatedAt   time.Time
}

// Store wraps the SQLite-backed episode catalog.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the catalog, creating the schema if needed.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log.With(slog.String("component", "store")), clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.Prune(ctx); err != nil {
		s.log.Warn("catalog prune on open failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS episodes (
    episode_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    pub_date TIMESTAMP NOT NULL,
    audio_url TEXT,
    video_url TEXT,
    audio_size INTEGER,
    duration_sec REAL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episodes_pub_date ON episodes(pub_date);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts an episode. Re-running a pipeline for the same episode
// ID replaces the catalog row.
func (s *Store) Save(ctx context.Context, ep Episode) error {
	if ep.ID == "" {
		return errors.New("episode id required")
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes(episode_id, title, description, pub_date, audio_url, video_url, audio_size, duration_sec, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(episode_id) DO UPDATE SET
		   title=excluded.title, description=excluded.description, pub_date=excluded.pub_date,
		   audio_url=excluded.audio_url, video_url=excluded.video_url,
		   audio_size=excluded.audio_size, duration_sec=excluded.duration_sec`,
		ep.ID, ep.Title, ep.Description, ep.PubDate.UTC().Format(time.RFC3339Nano),
		ep.AudioURL, ep.VideoURL, ep.AudioSize, ep.DurationSec, ep.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// Get retrieves one episode by ID.
func (s *Store) Get(ctx context.Context, id string) (Episode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT episode_id, title, description, pub_date, audio_url, video_url, audio_size, duration_sec, created_at
		 FROM episodes WHERE episode_id = ?`, id)
	ep, err := scanEpisode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return ep, err
}

// List returns up to limit episodes, newest publication first. A
// non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT episode_id, title, description, pub_date, audio_url, video_url, audio_size, duration_sec, created_at
		 FROM episodes ORDER BY pub_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows.Scan)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func scanEpisode(scan func(...any) error) (Episode, error) {
	var ep Episode
	var pub, created string
	if err := scan(&ep.ID, &ep.Title, &ep.Description, &pub, &ep.AudioURL, &ep.VideoURL, &ep.AudioSize, &ep.DurationSec, &created); err != nil {
		return Episode{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, pub); err == nil {
		ep.PubDate = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		ep.CreatedAt = ts
	}
	return ep, nil
}

// Prune applies the configured retention: episodes older than
// retention_days go first, then the count cap.
func (s *Store) Prune(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM episodes WHERE pub_date < ?`,
			cutoff.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}
	if s.cfg.MaxEpisodes > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM episodes WHERE episode_id IN (
			SELECT episode_id FROM episodes ORDER BY pub_date DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxEpisodes)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
