// Package dtext parses the site's DText markup into a small document model
// and renders it as plain text, Markdown, HTML, or styled terminal output.
//
// Parsing is a single pass. Block tags ([quote], [code], [section]) are
// matched first, then the remaining text is split into headers, list items,
// rules, and paragraphs, and each run of text is scanned for inline markup.
// Tags that never close are kept as literal text.
//
//	doc := dtext.Parse(body, dtext.Options{BaseURL: "https://e621.net"})
//	out, err := dtext.Terminal(doc, 80, "dark")
package dtext
