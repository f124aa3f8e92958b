package dtext

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultBaseURL is used for site links when Options.BaseURL is empty.
const DefaultBaseURL = "https://e621.net"

// maxNesting bounds [quote] and [section] recursion.
const maxNesting = 16

// Options configures Parse.
type Options struct {
	// BaseURL is the site root that wiki, tag, and reference links point at.
	BaseURL string
}

var (
	blockOpenRe = regexp.MustCompile(`(?i)\[(quote|code|section)(,expanded)?(?:=([^\]\n]*))?\]`)
	closeTagRe  = map[string]*regexp.Regexp{
		"quote":   regexp.MustCompile(`(?i)\[(/?)quote\]`),
		"section": regexp.MustCompile(`(?i)\[(/?)section(?:,expanded)?(?:=[^\]\n]*)?\]`),
	}
	headingRe = regexp.MustCompile(`(?i)^h([1-6])(?:#([A-Za-z0-9_-]+))?\.\s*(.*)$`)
	listRe    = regexp.MustCompile(`^(\*+)\s+(.*)$`)
	ruleRe    = regexp.MustCompile(`(?i)^\[hr\]$`)
)

type parser struct {
	base string
}

// Parse converts DText source into a Document.
func Parse(src string, opts Options) Document {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	p := parser{base: base}
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	return Document{Blocks: p.blocks(src, 0)}
}

// Inline parses a single line of inline markup, as used for titles.
func Inline(src string, opts Options) []Span {
	doc := Parse(strings.ReplaceAll(src, "\n", " "), Options{BaseURL: opts.BaseURL})
	var out []Span
	for _, b := range doc.Blocks {
		out = append(out, b.Spans...)
	}
	return out
}

func (p parser) blocks(src string, depth int) []Block {
	var out []Block
	var pending strings.Builder
	rest := src
	for {
		loc := blockOpenRe.FindStringSubmatchIndex(rest)
		if loc == nil || depth >= maxNesting {
			pending.WriteString(rest)
			break
		}
		name := strings.ToLower(rest[loc[2]:loc[3]])
		expanded := loc[4] >= 0
		hasTitle := loc[6] >= 0
		tagEnd := loc[1]
		if name != "section" && (expanded || hasTitle) {
			pending.WriteString(rest[:tagEnd])
			rest = rest[tagEnd:]
			continue
		}

		inner, after, ok := matchClose(name, rest[tagEnd:])
		if !ok {
			pending.WriteString(rest[:tagEnd])
			rest = rest[tagEnd:]
			continue
		}

		pending.WriteString(rest[:loc[0]])
		out = append(out, p.lines(pending.String())...)
		pending.Reset()

		switch name {
		case "code":
			out = append(out, Block{Kind: CodeBlock, Text: strings.Trim(inner, "\n")})
		case "quote":
			out = append(out, Block{Kind: Quote, Children: p.blocks(inner, depth+1)})
		case "section":
			title := ""
			if hasTitle {
				title = strings.TrimSpace(rest[loc[6]:loc[7]])
			}
			out = append(out, Block{Kind: Section, Title: title, Expanded: expanded, Children: p.blocks(inner, depth+1)})
		}
		rest = after
	}
	out = append(out, p.lines(pending.String())...)
	return out
}

// matchClose finds the tag closing name in body, honoring nesting for
// quote and section. Code blocks end at the first [/code].
func matchClose(name, body string) (inner, after string, ok bool) {
	if name == "code" {
		idx := indexFold(body, "[/code]")
		if idx < 0 {
			return "", "", false
		}
		return body[:idx], body[idx+len("[/code]"):], true
	}
	depth := 1
	for _, m := range closeTagRe[name].FindAllStringSubmatchIndex(body, -1) {
		if m[3] > m[2] {
			depth--
			if depth == 0 {
				return body[:m[0]], body[m[1]:], true
			}
			continue
		}
		depth++
	}
	return "", "", false
}

func (p parser) lines(text string) []Block {
	var out []Block
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		if spans := p.inline(strings.Join(para, "\n")); len(spans) > 0 {
			out = append(out, Block{Kind: Paragraph, Spans: spans})
		}
		para = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case ruleRe.MatchString(trimmed):
			flush()
			out = append(out, Block{Kind: Rule})
		default:
			if m := headingRe.FindStringSubmatch(trimmed); m != nil {
				flush()
				level, _ := strconv.Atoi(m[1])
				out = append(out, Block{Kind: Heading, Level: level, Anchor: m[2], Spans: p.inline(m[3])})
				continue
			}
			if m := listRe.FindStringSubmatch(trimmed); m != nil {
				flush()
				out = append(out, Block{Kind: ListItem, Level: len(m[1]), Spans: p.inline(m[2])})
				continue
			}
			para = append(para, trimmed)
		}
	}
	flush()
	return out
}

// indexFold is a case-insensitive strings.Index for ASCII substr.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}
