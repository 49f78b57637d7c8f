package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"mcpchat/internal/adapter/cli/theme"
)

// Renderer formats answers for the terminal. Answers are markdown and are
// rendered with glamour unless raw output was requested.
type Renderer struct {
	raw   bool
	width int
	md    *glamour.TermRenderer
}

// NewRenderer creates a Renderer. A width of 0 uses theme.MaxContentWidth.
func NewRenderer(raw bool, width int) *Renderer {
	if width <= 0 {
		width = theme.MaxContentWidth
	}
	return &Renderer{raw: raw, width: width}
}

// Render returns text as it should be printed. Rendering failures fall back
// to the plain text.
func (r *Renderer) Render(text string) string {
	if r.raw || strings.TrimSpace(text) == "" {
		return text
	}
	if r.md == nil {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return text
		}
		r.md = md
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
