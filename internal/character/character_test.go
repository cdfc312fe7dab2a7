package character

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.yaml")
	data := `
chatgpt:
  ai_name: ChatGPT
  persona_name: Sora
  company: OpenAI
gemini:
  company: Google
claude: {}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write characters: %v", err)
	}

	characters, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := characters["chatgpt"].PersonaName; got != "Sora" {
		t.Fatalf("expected explicit persona name, got %q", got)
	}
	if got := characters["gemini"].AIName; got != "GEMINI" {
		t.Fatalf("expected uppercased speaker fallback, got %q", got)
	}
	if got := characters["gemini"].PersonaName; got != "GEMINI" {
		t.Fatalf("expected persona fallback to ai_name, got %q", got)
	}
	if got := characters["claude"].AIName; got != "CLAUDE" {
		t.Fatalf("expected uppercased fallback, got %q", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty character file")
	}
}

func TestStyleFor(t *testing.T) {
	cases := map[string]Style{
		"chatgpt": StyleChatGPT,
		"gemini":  StyleGemini,
		"claude":  StyleClaude,
		"host":    StyleDefault,
		"":        StyleDefault,
	}
	for speaker, want := range cases {
		if got := StyleFor(speaker); got != want {
			t.Fatalf("StyleFor(%q) = %v, want %v", speaker, got, want)
		}
	}
	if palettes[StyleChatGPT].Background != "#10A37F" {
		t.Fatalf("unexpected chatgpt palette: %+v", palettes[StyleChatGPT])
	}
}
