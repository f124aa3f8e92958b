package dtext

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	rendererhtml "github.com/yuin/goldmark/renderer/html"
)

var htmlMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(rendererhtml.WithUnsafe()),
)

// HTML renders doc as an HTML fragment. Sections become <details> elements
// and spoilers carry the "spoiler" class.
func HTML(doc Document) (string, error) {
	w := mdWriter{rawHTML: true}
	var out bytes.Buffer
	if err := htmlMarkdown.Convert([]byte(w.blocks(doc.Blocks)), &out); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return out.String(), nil
}
