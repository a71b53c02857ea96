package render

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Terminal renders Markdown with ANSI styling.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal builds a renderer. An empty style picks one from the terminal
// background; "notty" disables colors.
func NewTerminal(style string, width int) (*Terminal, error) {
	if width <= 0 {
		width = 100
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return &Terminal{renderer: r}, nil
}

func (t *Terminal) Render(markdown string) (string, error) {
	out, err := t.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
