package dtext

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	styleTagRe    = regexp.MustCompile(`(?i)^\[(/?)(b|i|u|s|sup|sub|spoiler|color)(?:=([^\]\n]+))?\]`)
	labeledLinkRe = regexp.MustCompile(`^"([^"\n]+)":\[([^\]\s]+)\]`)
	labeledBareRe = regexp.MustCompile(`^"([^"\n]+)":((?:https?://|/)[^\s\[\]<>"]+)`)
	bareURLRe     = regexp.MustCompile(`(?i)^https?://[^\s\[\]<>"]+`)
	angleURLRe    = regexp.MustCompile(`(?i)^<(https?://[^\s<>]+)>`)
	referenceRe   = regexp.MustCompile(`(?i)^(post|pool|set|comment|user|forum|topic|wiki) #(\d+)`)
)

var styleTags = map[string]Style{
	"b":       Bold,
	"i":       Italic,
	"u":       Underline,
	"s":       Strike,
	"sup":     Superscript,
	"sub":     Subscript,
	"spoiler": Spoiler,
}

var referencePaths = map[string]string{
	"post":    "/posts/",
	"pool":    "/pools/",
	"set":     "/post_sets/",
	"comment": "/comments/",
	"user":    "/users/",
	"forum":   "/forum_posts/",
	"topic":   "/forum_topics/",
	"wiki":    "/wiki_pages/",
}

type inlineState struct {
	base   string
	spans  []Span
	buf    strings.Builder
	style  Style
	depth  map[Style]int
	colors []string
}

func (p parser) inline(s string) []Span {
	st := &inlineState{base: p.base, depth: make(map[Style]int)}
	i := 0
	for i < len(s) {
		if next, ok := st.markup(s, i); ok {
			i = next
			continue
		}
		st.buf.WriteByte(s[i])
		i++
	}
	st.flush()
	return st.spans
}

// markup tries every inline construct starting at s[i] and returns the index
// just past it.
func (st *inlineState) markup(s string, i int) (int, bool) {
	switch s[i] {
	case '[':
		if strings.HasPrefix(s[i:], "[[") {
			if next, ok := st.wikiLink(s, i); ok {
				return next, true
			}
		}
		return st.tag(s, i)
	case '{':
		if strings.HasPrefix(s[i:], "{{") {
			return st.tagLink(s, i)
		}
	case '`':
		return st.code(s, i)
	case '"':
		return st.labeledLink(s, i)
	case '<':
		if m := angleURLRe.FindStringSubmatch(s[i:]); m != nil {
			st.link(m[1], m[1])
			return i + len(m[0]), true
		}
	case 'h', 'H':
		if !wordBoundary(s, i) {
			return 0, false
		}
		if m := bareURLRe.FindString(s[i:]); m != "" {
			href := trimURL(m)
			st.link(href, href)
			return i + len(href), true
		}
	}
	if wordBoundary(s, i) {
		if m := referenceRe.FindStringSubmatch(s[i:]); m != nil {
			st.link(m[0], st.base+referencePaths[strings.ToLower(m[1])]+m[2])
			return i + len(m[0]), true
		}
	}
	return 0, false
}

func (st *inlineState) tag(s string, i int) (int, bool) {
	m := styleTagRe.FindStringSubmatch(s[i:])
	if m == nil {
		return 0, false
	}
	closing := m[1] == "/"
	name := strings.ToLower(m[2])
	attr := strings.TrimSpace(m[3])
	end := i + len(m[0])

	if name == "color" {
		if closing {
			if len(st.colors) == 0 {
				return 0, false
			}
			st.flush()
			st.colors = st.colors[:len(st.colors)-1]
			return end, true
		}
		if attr == "" || indexFold(s[end:], "[/color]") < 0 {
			return 0, false
		}
		st.flush()
		st.colors = append(st.colors, attr)
		return end, true
	}

	flag := styleTags[name]
	if closing {
		if attr != "" || st.depth[flag] == 0 {
			return 0, false
		}
		st.flush()
		st.depth[flag]--
		if st.depth[flag] == 0 {
			st.style &^= flag
		}
		return end, true
	}
	if attr != "" || indexFold(s[end:], "[/"+name+"]") < 0 {
		return 0, false
	}
	st.flush()
	st.depth[flag]++
	st.style |= flag
	return end, true
}

func (st *inlineState) wikiLink(s string, i int) (int, bool) {
	end := strings.Index(s[i+2:], "]]")
	if end <= 0 {
		return 0, false
	}
	inner := s[i+2 : i+2+end]
	if strings.Contains(inner, "\n") {
		return 0, false
	}
	title, label, hasLabel := strings.Cut(inner, "|")
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, false
	}
	if !hasLabel || strings.TrimSpace(label) == "" {
		label = title
	}
	page, anchor, _ := strings.Cut(title, "#")
	href := st.base + "/wiki_pages/show_or_new?title=" + url.QueryEscape(WikiTitle(page))
	if anchor != "" {
		href += "#" + anchor
	}
	st.link(strings.TrimSpace(label), href)
	return i + 2 + end + 2, true
}

func (st *inlineState) tagLink(s string, i int) (int, bool) {
	end := strings.Index(s[i+2:], "}}")
	if end <= 0 {
		return 0, false
	}
	inner := s[i+2 : i+2+end]
	if strings.Contains(inner, "\n") {
		return 0, false
	}
	query, label, hasLabel := strings.Cut(inner, "|")
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return 0, false
	}
	if !hasLabel || strings.TrimSpace(label) == "" {
		label = query
	}
	st.link(strings.TrimSpace(label), st.base+"/posts?tags="+url.QueryEscape(query))
	return i + 2 + end + 2, true
}

func (st *inlineState) code(s string, i int) (int, bool) {
	end := strings.IndexByte(s[i+1:], '`')
	if end <= 0 {
		return 0, false
	}
	st.flush()
	st.emit(Span{Text: s[i+1 : i+1+end], Style: st.style | Code, Color: st.color()})
	return i + 1 + end + 1, true
}

func (st *inlineState) labeledLink(s string, i int) (int, bool) {
	if m := labeledLinkRe.FindStringSubmatch(s[i:]); m != nil {
		href, ok := st.resolve(m[2])
		if !ok {
			return 0, false
		}
		st.link(m[1], href)
		return i + len(m[0]), true
	}
	if m := labeledBareRe.FindStringSubmatch(s[i:]); m != nil {
		target := trimURL(m[2])
		href, ok := st.resolve(target)
		if !ok {
			return 0, false
		}
		st.link(m[1], href)
		return i + len(`"`+m[1]+`":`) + len(target), true
	}
	return 0, false
}

// resolve turns a link target into an absolute URL. Only http(s) and
// site-relative targets are links; anything else stays text.
func (st *inlineState) resolve(target string) (string, bool) {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return st.base + target, true
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return target, true
	}
	return "", false
}

func (st *inlineState) link(label, href string) {
	st.flush()
	st.emit(Span{Text: label, Style: st.style, Href: href, Color: st.color()})
}

func (st *inlineState) color() string {
	if len(st.colors) == 0 {
		return ""
	}
	return st.colors[len(st.colors)-1]
}

func (st *inlineState) flush() {
	if st.buf.Len() == 0 {
		return
	}
	st.emit(Span{Text: st.buf.String(), Style: st.style, Color: st.color()})
	st.buf.Reset()
}

func (st *inlineState) emit(span Span) {
	if span.Text == "" {
		return
	}
	if n := len(st.spans); n > 0 {
		last := &st.spans[n-1]
		if last.Href == "" && span.Href == "" && last.Style == span.Style && last.Color == span.Color {
			last.Text += span.Text
			return
		}
	}
	st.spans = append(st.spans, span)
}

// WikiTitle normalizes a page name the way the site stores titles.
func WikiTitle(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

func wordBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	c := s[i-1]
	return !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
}

// trimURL drops trailing punctuation that belongs to the sentence, keeping
// a closing parenthesis when the URL opened one.
func trimURL(raw string) string {
	for len(raw) > 0 {
		last := raw[len(raw)-1]
		switch {
		case strings.IndexByte(".,:;!?'", last) >= 0:
			raw = raw[:len(raw)-1]
		case last == ')' && strings.Count(raw, "(") < strings.Count(raw, ")"):
			raw = raw[:len(raw)-1]
		default:
			return raw
		}
	}
	return raw
}
