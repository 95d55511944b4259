package report

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minWrapWidth keeps narrow terminals readable.
const minWrapWidth = 24

// Renderer renders markdown for terminals and recreates the glamour renderer when the wrap width changes.
// The zero value is ready to use.
type Renderer struct {
	Style    string
	width    int
	renderer *glamour.TermRenderer
}

// Render converts markdown into ANSI-styled text. Rendering failures fall back to the raw markdown.
func (r *Renderer) Render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minWrapWidth)
	if r.renderer == nil || r.width != wrapWidth {
		style := r.Style
		if style == "" {
			style = "dark"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
