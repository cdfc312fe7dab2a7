// Package character holds per-speaker presentation metadata: display
// names, company label, and the avatar style variant used for drawing.
package character

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Character is the presentation config for one debate speaker.
type Character struct {
	AIName      string `yaml:"ai_name"`
	PersonaName string `yaml:"persona_name"`
	Company     string `yaml:"company"`
}

// Load reads characters.yaml keyed by speaker identity and applies
// defaults: ai_name falls back to the uppercased speaker key,
// persona_name falls back to ai_name.
func Load(path string) (map[string]Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read characters: %w", err)
	}
	var characters map[string]Character
	if err := yaml.Unmarshal(data, &characters); err != nil {
		return nil, fmt.Errorf("parse characters: %w", err)
	}
	if len(characters) == 0 {
		return nil, fmt.Errorf("no characters defined in %s", path)
	}
	for speaker, c := range characters {
		characters[speaker] = ApplyDefaults(speaker, c)
	}
	return characters, nil
}

// ApplyDefaults fills absent display fields from the speaker identity.
func ApplyDefaults(speaker string, c Character) Character {
	if strings.TrimSpace(c.AIName) == "" {
		c.AIName = strings.ToUpper(speaker)
	}
	if strings.TrimSpace(c.PersonaName) == "" {
		c.PersonaName = c.AIName
	}
	return c
}
