// Package bus publishes pipeline lifecycle events to NATS so other
// systems (schedulers, notifiers) can react to episode progress.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/newsroom-labs/debatecast/internal/config"
)

// Event is the JSON payload published on every lifecycle subject.
type Event struct {
	RunID     string    `json:"run_id"`
	EpisodeID string    `json:"episode_id"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits lifecycle events. The zero value (or a nil pointer)
// is a no-op publisher for runs with the bus disabled.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	log    *slog.Logger
	clock  func() time.Time
}

// Connect dials NATS per config. When the bus is disabled it returns a
// nil Publisher, which all methods accept.
func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("debatecast"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Publisher{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		log:    log.With(slog.String("component", "bus")),
		clock:  time.Now,
	}, nil
}

func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.log.Info("closing NATS connection")
	p.conn.Drain()
	p.conn.Close()
}

func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

// EpisodeStarted announces the beginning of a pipeline run.
func (p *Publisher) EpisodeStarted(runID, episodeID string) {
	p.publish("episode.started", Event{RunID: runID, EpisodeID: episodeID})
}

// StageCompleted announces completion of one pipeline stage.
func (p *Publisher) StageCompleted(runID, episodeID, stage string) {
	p.publish("stage.completed", Event{RunID: runID, EpisodeID: episodeID, Stage: stage})
}

// EpisodePublished announces a fully published episode.
func (p *Publisher) EpisodePublished(runID, episodeID string) {
	p.publish("episode.published", Event{RunID: runID, EpisodeID: episodeID})
}

// EpisodeFailed announces a run that stopped at stage with err.
func (p *Publisher) EpisodeFailed(runID, episodeID, stage string, err error) {
	evt := Event{RunID: runID, EpisodeID: episodeID, Stage: stage}
	if err != nil {
		evt.Error = err.Error()
	}
	p.publish("episode.failed", evt)
}

// publish is fire and forget. Delivery failures are logged, never
// surfaced, so observability problems cannot fail a render.
func (p *Publisher) publish(suffix string, evt Event) {
	if p == nil || p.conn == nil {
		return
	}
	evt.At = p.clock().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("marshal bus event", slog.String("error", err.Error()))
		return
	}
	subject := p.prefix + "." + suffix
	if err := p.conn.Publish(subject, payload); err != nil {
		p.log.Warn("publish bus event",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
