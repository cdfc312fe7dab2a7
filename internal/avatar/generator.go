// Package avatar renders the per-speaker title cards shown while a
// speaker holds the floor. Rendering is a pure function of
// (speaker, character): identical inputs produce identical image bytes.
package avatar

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/newsroom-labs/debatecast/internal/character"
)

// CacheMode controls what happens when a speaker's avatar file already
// exists. Both behaviors are valid configurations; callers pick one
// explicitly.
type CacheMode int

const (
	// CacheSkipExisting reuses an existing file untouched.
	CacheSkipExisting CacheMode = iota
	// CacheRegenerate always re-renders, overwriting the file.
	CacheRegenerate
)

// CacheModeFromString maps the config value to a CacheMode.
func CacheModeFromString(s string) (CacheMode, error) {
	switch s {
	case "skip_existing":
		return CacheSkipExisting, nil
	case "regenerate":
		return CacheRegenerate, nil
	default:
		return CacheSkipExisting, fmt.Errorf("unknown avatar cache mode %q", s)
	}
}

type Generator struct {
	outputDir string
	width     int
	height    int
	mode      CacheMode
	fonts     *FontSet
	log       *slog.Logger
}

func NewGenerator(outputDir string, width, height int, mode CacheMode, fonts *FontSet, log *slog.Logger) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &Generator{
		outputDir: outputDir,
		width:     width,
		height:    height,
		mode:      mode,
		fonts:     fonts,
		log:       log.With(slog.String("component", "avatar-generator")),
	}, nil
}

// Path returns the cache location for a speaker's avatar.
func (g *Generator) Path(speaker string) string {
	return filepath.Join(g.outputDir, fmt.Sprintf("avatar_%s.png", speaker))
}

// Generate renders the avatar for one speaker and returns its path.
// Under CacheSkipExisting an existing file is returned as-is.
func (g *Generator) Generate(speaker string, c character.Character) (string, error) {
	path := g.Path(speaker)

	if g.mode == CacheSkipExisting {
		if _, err := os.Stat(path); err == nil {
			g.log.Debug("avatar exists, skipping", slog.String("speaker", speaker))
			return path, nil
		}
	}

	c = character.ApplyDefaults(speaker, c)
	style := character.StyleFor(speaker)

	dc := gg.NewContext(g.width, g.height)
	g.render(dc, style, c)

	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save avatar %s: %w", path, err)
	}
	g.log.Info("avatar generated",
		slog.String("speaker", speaker),
		slog.String("style", style.String()),
		slog.String("path", path))
	return path, nil
}

// GenerateAll renders one avatar per character and returns the
// speaker → path mapping.
func (g *Generator) GenerateAll(characters map[string]character.Character) (map[string]string, error) {
	avatars := make(map[string]string, len(characters))
	for speaker, c := range characters {
		path, err := g.Generate(speaker, c)
		if err != nil {
			return nil, err
		}
		avatars[speaker] = path
	}
	return avatars, nil
}
