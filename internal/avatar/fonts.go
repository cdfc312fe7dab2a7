package avatar

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// FontSet resolves the avatar fonts from a configured search list with
// a guaranteed last resort: the Go fonts embedded in the binary. This
// keeps rendering deterministic across environments instead of
// silently depending on whatever the OS ships.
type FontSet struct {
	display     *truetype.Font
	body        *truetype.Font
	displayPath string // empty when the embedded fallback is in use
}

// LoadFonts tries each path in order and uses the first readable
// TrueType file for all text. When none resolves, the embedded Go Bold
// and Go Regular fonts are used.
func LoadFonts(paths []string, log *slog.Logger) *FontSet {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		f, err := truetype.Parse(data)
		if err != nil {
			log.Warn("skipping unparsable font", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		return &FontSet{display: f, body: f, displayPath: path}
	}

	display, err := truetype.Parse(gobold.TTF)
	if err != nil {
		// Embedded fonts are known-good; parse failure means a broken build.
		panic(fmt.Sprintf("parse embedded bold font: %v", err))
	}
	body, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse embedded regular font: %v", err))
	}
	log.Debug("no configured font found, using embedded fonts")
	return &FontSet{display: display, body: body}
}

// DisplayFace returns a face for headline text at the given size.
func (s *FontSet) DisplayFace(size float64) font.Face {
	return truetype.NewFace(s.display, &truetype.Options{Size: size})
}

// BodyFace returns a face for secondary text at the given size.
func (s *FontSet) BodyFace(size float64) font.Face {
	return truetype.NewFace(s.body, &truetype.Options{Size: size})
}

// DrawtextPath returns a filesystem path for the display font usable by
// the media tool's drawtext filter. The embedded fallback is
// materialized into dir on first use.
func (s *FontSet) DrawtextPath(dir string) (string, error) {
	if s.displayPath != "" {
		return s.displayPath, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create font dir: %w", err)
	}
	path := filepath.Join(dir, "gobold.ttf")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, gobold.TTF, 0o644); err != nil {
		return "", fmt.Errorf("write embedded font: %w", err)
	}
	return path, nil
}
