package video

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAvatarsAvailable is returned when a timeline is requested
	// with an empty avatar set.
	ErrNoAvatarsAvailable = errors.New("no avatars available")

	// ErrInvalidDuration is returned when a line's computed duration
	// is not positive.
	ErrInvalidDuration = errors.New("invalid segment duration")
)

// RenderError carries the media tool's diagnostics after a non-zero
// exit. The message includes the tool's stderr verbatim so callers can
// surface it directly.
type RenderError struct {
	Op       string
	ExitCode int
	Stderr   string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: media tool exited with code %d: %s", e.Op, e.ExitCode, strings.TrimSpace(e.Stderr))
}
