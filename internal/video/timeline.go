package video

import (
	"fmt"

	"github.com/newsroom-labs/debatecast/internal/script"
)

// Segment is one contiguous portion of the output video: a single
// speaker's avatar held on screen for the line's duration.
type Segment struct {
	Speaker  string
	Avatar   string
	Start    float64
	Duration float64
	Text     string
}

// AvatarSet maps speaker identities to avatar image paths while
// remembering insertion order, so fallback selection is deterministic.
type AvatarSet struct {
	speakers []string
	paths    map[string]string
}

func NewAvatarSet() *AvatarSet {
	return &AvatarSet{paths: make(map[string]string)}
}

// Add registers an avatar. Re-adding a speaker replaces the path but
// keeps the original insertion position.
func (s *AvatarSet) Add(speaker, path string) {
	if _, ok := s.paths[speaker]; !ok {
		s.speakers = append(s.speakers, speaker)
	}
	s.paths[speaker] = path
}

func (s *AvatarSet) Lookup(speaker string) (string, bool) {
	path, ok := s.paths[speaker]
	return path, ok
}

func (s *AvatarSet) Len() int {
	return len(s.speakers)
}

// First returns the first-inserted avatar path.
func (s *AvatarSet) First() (string, bool) {
	if len(s.speakers) == 0 {
		return "", false
	}
	return s.paths[s.speakers[0]], true
}

// BuildTimeline turns a script into an ordered segment list. One
// segment per line, same order; each segment's start offset is the
// exact sum of all prior durations.
//
// Avatar resolution per line: direct lookup, then the defaultSpeaker's
// avatar, then the first-inserted entry. An empty avatar set fails
// with ErrNoAvatarsAvailable.
func BuildTimeline(s *script.Script, avatars *AvatarSet, defaultSpeaker string) ([]Segment, error) {
	if avatars == nil || avatars.Len() == 0 {
		return nil, ErrNoAvatarsAvailable
	}

	segments := make([]Segment, 0, len(s.Lines))
	current := 0.0

	for i, line := range s.Lines {
		duration := line.Duration()
		if duration <= 0 {
			return nil, fmt.Errorf("line %d (%s): %w: %v", i, line.Speaker, ErrInvalidDuration, duration)
		}

		avatar, ok := avatars.Lookup(line.Speaker)
		if !ok {
			avatar, ok = avatars.Lookup(defaultSpeaker)
		}
		if !ok {
			avatar, _ = avatars.First()
		}

		segments = append(segments, Segment{
			Speaker:  line.Speaker,
			Avatar:   avatar,
			Start:    current,
			Duration: duration,
			Text:     line.Text,
		})
		current += duration
	}

	return segments, nil
}
