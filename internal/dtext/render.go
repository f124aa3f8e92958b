package dtext

import (
	"regexp"
	"strings"
)

// Plain renders doc as unformatted text. Lists are bulleted, quotes are
// prefixed with "> ", and links keep only their label.
func Plain(doc Document) string {
	var b strings.Builder
	writePlain(&b, doc.Blocks, "")
	return strings.TrimRight(b.String(), "\n")
}

func writePlain(b *strings.Builder, blocks []Block, prefix string) {
	for i, block := range blocks {
		if i > 0 {
			if block.Kind == ListItem && blocks[i-1].Kind == ListItem {
				b.WriteString("\n")
			} else {
				b.WriteString("\n" + strings.TrimRight(prefix, " ") + "\n")
			}
		}
		switch block.Kind {
		case Paragraph, Heading:
			writePrefixed(b, prefix, PlainText(block.Spans))
		case ListItem:
			indent := strings.Repeat("  ", max(block.Level-1, 0))
			writePrefixed(b, prefix, indent+"• "+PlainText(block.Spans))
		case Quote:
			writePlain(b, block.Children, prefix+"> ")
		case CodeBlock:
			writePrefixed(b, prefix, block.Text)
		case Section:
			title := block.Title
			if title == "" {
				title = "Section"
			}
			writePrefixed(b, prefix, "▼ "+title)
			if len(block.Children) > 0 {
				b.WriteString("\n")
				writePlain(b, block.Children, prefix+"  ")
			}
		case Rule:
			writePrefixed(b, prefix, strings.Repeat("─", 20))
		}
	}
}

func writePrefixed(b *strings.Builder, prefix, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
}

// Markdown renders doc as CommonMark with GFM strikethrough. Formatting that
// Markdown cannot express (underline, superscript, colors) is dropped and
// spoilers are wrapped in "||".
func Markdown(doc Document) string {
	w := mdWriter{}
	return w.blocks(doc.Blocks)
}

type mdWriter struct {
	// rawHTML allows inline HTML for formatting Markdown lacks.
	rawHTML bool
}

func (w mdWriter) blocks(blocks []Block) string {
	var b strings.Builder
	listLevel := 0
	for i, block := range blocks {
		if i > 0 {
			if block.Kind == ListItem && blocks[i-1].Kind == ListItem {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		if block.Kind != ListItem {
			listLevel = 0
		}
		switch block.Kind {
		case Paragraph:
			b.WriteString(escapeLineStarts(w.spans(block.Spans)))
		case Heading:
			level := min(max(block.Level, 1), 6)
			b.WriteString(strings.Repeat("#", level) + " " + strings.ReplaceAll(w.spans(block.Spans), "\\\n", " "))
		case ListItem:
			level := min(max(block.Level, 1), listLevel+1)
			listLevel = level
			b.WriteString(strings.Repeat("  ", level-1) + "- " + strings.ReplaceAll(w.spans(block.Spans), "\\\n", " "))
		case Quote:
			b.WriteString(quoteLines(w.blocks(block.Children)))
		case CodeBlock:
			fence := "```"
			if strings.Contains(block.Text, "```") {
				fence = "~~~~"
			}
			b.WriteString(fence + "\n" + block.Text + "\n" + fence)
		case Section:
			b.WriteString(w.section(block))
		case Rule:
			b.WriteString("---")
		}
	}
	return b.String()
}

func (w mdWriter) section(block Block) string {
	title := block.Title
	if title == "" {
		title = "Section"
	}
	children := w.blocks(block.Children)
	if !w.rawHTML {
		out := "**" + escapeMarkdown(title) + "**"
		if children != "" {
			out += "\n\n" + children
		}
		return out
	}
	open := "<details>"
	if block.Expanded {
		open = "<details open>"
	}
	out := open + "\n<summary>" + escapeHTML(title) + "</summary>\n\n"
	if children != "" {
		out += children + "\n\n"
	}
	return out + "</details>"
}

func quoteLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

func (w mdWriter) spans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(w.span(s))
	}
	return b.String()
}

func (w mdWriter) span(s Span) string {
	if s.Style.Has(Code) {
		text := strings.ReplaceAll(s.Text, "\n", " ")
		if strings.Contains(text, "`") {
			return "`` " + text + " ``"
		}
		return "`" + text + "`"
	}

	lead, core, trail := splitSpace(s.Text)
	if core == "" {
		return hardBreaks(s.Text)
	}
	text := hardBreaks(escapeMarkdown(core))
	if s.Href != "" {
		text = "[" + text + "](" + escapeHref(s.Href) + ")"
	}
	if s.Style.Has(Strike) {
		text = "~~" + text + "~~"
	}
	if s.Style.Has(Italic) {
		text = "*" + text + "*"
	}
	if s.Style.Has(Bold) {
		text = "**" + text + "**"
	}
	if w.rawHTML {
		if s.Style.Has(Underline) {
			text = "<u>" + text + "</u>"
		}
		if s.Style.Has(Superscript) {
			text = "<sup>" + text + "</sup>"
		}
		if s.Style.Has(Subscript) {
			text = "<sub>" + text + "</sub>"
		}
		if s.Style.Has(Spoiler) {
			text = `<span class="spoiler">` + text + "</span>"
		}
		if color := safeColor(s.Color); color != "" {
			text = `<span style="color: ` + color + `">` + text + "</span>"
		}
	} else if s.Style.Has(Spoiler) {
		text = "||" + text + "||"
	}
	return hardBreaks(lead) + text + hardBreaks(trail)
}

func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeft(s, " \t\n")
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRight(core, " \t\n")
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

func hardBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "\\\n")
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "~", `\~`, "|", `\|`, "&", `\&`,
)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

var (
	listStartRe    = regexp.MustCompile(`(?m)^([-+=])`)
	orderedStartRe = regexp.MustCompile(`(?m)^(\d+)([.)])`)
)

// escapeLineStarts keeps paragraph lines from being read as list items or
// setext underlines.
func escapeLineStarts(s string) string {
	s = listStartRe.ReplaceAllString(s, `\$1`)
	return orderedStartRe.ReplaceAllString(s, `$1\$2`)
}

var hrefEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func escapeHref(href string) string {
	return hrefEscaper.Replace(href)
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var colorRe = regexp.MustCompile(`^(#[0-9A-Fa-f]{3,8}|[A-Za-z]{1,20})$`)

// safeColor returns c when it is a hex code or a bare color name.
func safeColor(c string) string {
	c = strings.TrimSpace(c)
	if !colorRe.MatchString(c) {
		return ""
	}
	return c
}
