package dtext

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Terminal renders doc for an ANSI terminal, wrapped at width columns.
// style is a glamour style name ("dark", "light", "notty", ...), "auto", or
// the path of a JSON style file.
func Terminal(doc Document, width int, style string) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(max(width, 0)),
	}

	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	case "dark", "light", "notty", "dracula", "pink", "ascii", "tokyo-night":
		opts = append(opts, glamour.WithStylePath(strings.ToLower(strings.TrimSpace(style))))
	default:
		if _, err := os.Stat(style); err == nil {
			opts = append(opts, glamour.WithStylesFromJSONFile(style))
		} else {
			opts = append(opts, glamour.WithAutoStyle())
		}
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := r.Render(Markdown(doc))
	if err != nil {
		return "", fmt.Errorf("render terminal: %w", err)
	}
	return out, nil
}
