package character

// Style is the closed set of avatar rendering variants. The variant is
// chosen once per speaker; drawing code switches on the variant, never
// on the raw speaker string.
type Style int

const (
	StyleDefault Style = iota
	StyleChatGPT
	StyleGemini
	StyleClaude
)

// Palette is the color scheme for one style, as #RRGGBB strings.
type Palette struct {
	Background string
	Accent     string
	Text       string
}

var palettes = map[Style]Palette{
	StyleChatGPT: {Background: "#10A37F", Accent: "#1A7F64", Text: "#FFFFFF"},
	StyleGemini:  {Background: "#4285F4", Accent: "#1967D2", Text: "#FFFFFF"},
	StyleClaude:  {Background: "#D97757", Accent: "#CC5500", Text: "#FFFFFF"},
	StyleDefault: {Background: "#444B54", Accent: "#2E343B", Text: "#FFFFFF"},
}

// StyleFor maps a speaker identity to its rendering variant. Unknown
// speakers get StyleDefault.
func StyleFor(speaker string) Style {
	switch speaker {
	case "chatgpt":
		return StyleChatGPT
	case "gemini":
		return StyleGemini
	case "claude":
		return StyleClaude
	default:
		return StyleDefault
	}
}

// Palette returns the color scheme for the style.
func (s Style) Palette() Palette {
	return palettes[s]
}

func (s Style) String() string {
	switch s {
	case StyleChatGPT:
		return "chatgpt"
	case StyleGemini:
		return "gemini"
	case StyleClaude:
		return "claude"
	default:
		return "default"
	}
}
