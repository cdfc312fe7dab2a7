// Package script defines the debate script consumed by the pipeline.
//
// Scripts are produced upstream (by the debate agents) and checkpointed as
// JSON; this package only loads, validates, and persists them.
package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Line is one spoken line of the debate.
type Line struct {
	Speaker              string  `json:"speaker"`
	Text                 string  `json:"text"`
	EstimatedDurationSec float64 `json:"estimated_duration_sec"`
	PauseAfterSec        float64 `json:"pause_after_sec"`
}

// Duration is the on-screen time for the line: spoken time plus the
// pause before the next speaker.
func (l Line) Duration() float64 {
	return l.EstimatedDurationSec + l.PauseAfterSec
}

// Script is a complete debate in presentation order.
type Script struct {
	Title            string  `json:"title"`
	TopicSummary     string  `json:"topic_summary"`
	Lines            []Line  `json:"lines"`
	TotalDurationSec float64 `json:"total_duration_sec"`
}

// Validate checks the script is usable by the pipeline.
func (s *Script) Validate() error {
	if len(s.Lines) == 0 {
		return fmt.Errorf("script has no lines")
	}
	for i, line := range s.Lines {
		if strings.TrimSpace(line.Speaker) == "" {
			return fmt.Errorf("line %d: empty speaker", i)
		}
		if line.EstimatedDurationSec < 0 {
			return fmt.Errorf("line %d: negative estimated duration %v", i, line.EstimatedDurationSec)
		}
		if line.PauseAfterSec < 0 {
			return fmt.Errorf("line %d: negative pause %v", i, line.PauseAfterSec)
		}
	}
	return nil
}

// Load reads and validates a script JSON file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the script as indented JSON, creating parent directories.
func (s *Script) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create script dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}
