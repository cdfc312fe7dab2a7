package avatar

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/newsroom-labs/debatecast/internal/character"
)

// render paints the full card: background, accent bar, the style mark,
// and the three text lines.
func (g *Generator) render(dc *gg.Context, style character.Style, c character.Character) {
	w := float64(g.width)
	h := float64(g.height)
	pal := style.Palette()

	dc.SetHexColor(pal.Background)
	dc.Clear()

	accentHeight := h / 4
	dc.SetHexColor(pal.Accent)
	dc.DrawRectangle(0, h-accentHeight, w, accentHeight)
	dc.Fill()

	g.drawMark(dc, style, w/2, h/4, h/8)

	// Primary name, centered above the middle, with a drop shadow for
	// legibility against the flat background.
	nameY := h/2 - 40
	dc.SetFontFace(g.fonts.DisplayFace(120))
	dc.SetRGBA(0, 0, 0, 0.25)
	dc.DrawStringAnchored(c.AIName, w/2+4, nameY+4, 0.5, 0.5)
	dc.SetHexColor(pal.Text)
	dc.DrawStringAnchored(c.AIName, w/2, nameY, 0.5, 0.5)

	dc.SetFontFace(g.fonts.BodyFace(60))
	dc.SetHexColor(pal.Text)
	dc.DrawStringAnchored(fmt.Sprintf("aka %s", c.PersonaName), w/2, nameY+150, 0.5, 0.5)

	if c.Company != "" {
		dc.SetFontFace(g.fonts.BodyFace(40))
		dc.DrawStringAnchored(c.Company, w/2, h-accentHeight/2, 0.5, 0.5)
	}
}

// drawMark paints the stylized glyph for the variant, centered at
// (cx, cy) with radius r.
func (g *Generator) drawMark(dc *gg.Context, style character.Style, cx, cy, r float64) {
	pal := style.Palette()
	dc.SetHexColor(pal.Text)

	switch style {
	case character.StyleChatGPT:
		// Interlocked hexagonal ring.
		dc.SetLineWidth(r / 5)
		dc.DrawRegularPolygon(6, cx, cy, r, 0)
		dc.Stroke()
		dc.DrawRegularPolygon(6, cx, cy, r*0.55, math.Pi/6)
		dc.Stroke()
	case character.StyleGemini:
		// Four-point star, two nested diamonds.
		dc.DrawRegularPolygon(4, cx, cy, r, 0)
		dc.Fill()
		dc.SetHexColor(pal.Accent)
		dc.DrawRegularPolygon(4, cx, cy, r*0.45, math.Pi/4)
		dc.Fill()
	case character.StyleClaude:
		// Radial sunburst.
		dc.SetLineWidth(r / 6)
		for i := 0; i < 12; i++ {
			angle := float64(i) * math.Pi / 6
			x1 := cx + math.Cos(angle)*r*0.45
			y1 := cy + math.Sin(angle)*r*0.45
			x2 := cx + math.Cos(angle)*r
			y2 := cy + math.Sin(angle)*r
			dc.DrawLine(x1, y1, x2, y2)
			dc.Stroke()
		}
	default:
		dc.SetLineWidth(r / 5)
		dc.DrawCircle(cx, cy, r*0.8)
		dc.Stroke()
	}
}
