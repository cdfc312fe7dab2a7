package tts

import (
	"context"
	"fmt"

	"github.com/newsroom-labs/debatecast/internal/config"
)

// GoogleCloud is a placeholder for the Cloud Text-to-Speech backend.
// It carries the configured voice so wiring can be validated before
// the integration lands.
type GoogleCloud struct {
	voice config.VoiceConfig
}

func NewGoogleCloud(voice config.VoiceConfig) *GoogleCloud {
	return &GoogleCloud{voice: voice}
}

func (g *GoogleCloud) Synthesize(ctx context.Context, text, speaker, outputPath string) (string, error) {
	return "", fmt.Errorf("gcloud voice %q: %w", g.voice.VoiceID, ErrNotImplemented)
}

// ElevenLabs is a placeholder for the ElevenLabs backend.
type ElevenLabs struct {
	voice config.VoiceConfig
}

func NewElevenLabs(voice config.VoiceConfig) *ElevenLabs {
	return &ElevenLabs{voice: voice}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, speaker, outputPath string) (string, error) {
	return "", fmt.Errorf("elevenlabs voice %q: %w", e.voice.VoiceID, ErrNotImplemented)
}
