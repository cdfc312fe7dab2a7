// Package tts abstracts speech synthesis behind a uniform provider
// contract so backends can be swapped through configuration.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newsroom-labs/debatecast/internal/config"
	"github.com/newsroom-labs/debatecast/internal/script"
)

// ErrNotImplemented marks a provider variant that has no real backend
// yet. Selecting it is legitimate configuration; synthesizing with it
// fails deterministically.
var ErrNotImplemented = errors.New("tts provider not implemented")

// Provider synthesizes one line of speech into outputPath and returns
// the written path.
type Provider interface {
	Synthesize(ctx context.Context, text, speaker, outputPath string) (string, error)
}

// New builds a provider from one voice config. An empty provider name
// selects the mock backend.
func New(cfg config.VoiceConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMock(0), nil
	case "gcloud":
		return NewGoogleCloud(cfg), nil
	case "elevenlabs":
		return NewElevenLabs(cfg), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}

// Registry dispatches synthesis to per-speaker providers, falling back
// to the mock backend for speakers without a voice config.
type Registry struct {
	providers map[string]Provider
	fallback  Provider
}

func NewRegistry(voices map[string]config.VoiceConfig) (*Registry, error) {
	providers := make(map[string]Provider, len(voices))
	for speaker, voice := range voices {
		p, err := New(voice)
		if err != nil {
			return nil, fmt.Errorf("voice for %s: %w", speaker, err)
		}
		providers[speaker] = p
	}
	return &Registry{providers: providers, fallback: NewMock(0)}, nil
}

func (r *Registry) Synthesize(ctx context.Context, text, speaker, outputPath string) (string, error) {
	if p, ok := r.providers[speaker]; ok {
		return p.Synthesize(ctx, text, speaker, outputPath)
	}
	return r.fallback.Synthesize(ctx, text, speaker, outputPath)
}

// SynthesizeLines renders every script line into dir, in order, and
// returns the audio paths. File names are zero-padded by line index so
// lexical order matches script order.
func SynthesizeLines(ctx context.Context, p Provider, lines []script.Line, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	paths := make([]string, 0, len(lines))
	for i, line := range lines {
		out := filepath.Join(dir, fmt.Sprintf("%03d_%s.wav", i, line.Speaker))
		written, err := p.Synthesize(ctx, line.Text, line.Speaker, out)
		if err != nil {
			return nil, fmt.Errorf("synthesize line %d (%s): %w", i, line.Speaker, err)
		}
		paths = append(paths, written)
	}
	return paths, nil
}
