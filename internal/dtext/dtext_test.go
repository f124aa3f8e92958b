package dtext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testOpts = Options{BaseURL: "https://e926.net/"}

func links(blocks []Block) [][2]string {
	var out [][2]string
	for _, b := range blocks {
		for _, s := range b.Spans {
			if s.Href != "" {
				out = append(out, [2]string{s.Text, s.Href})
			}
		}
		out = append(out, links(b.Children)...)
	}
	return out
}

func TestParse_Headings(t *testing.T) {
	doc := Parse("h2#intro. Hello [b]world[/b]\nH7. not a heading", testOpts)
	require.Len(t, doc.Blocks, 2)

	h := doc.Blocks[0]
	require.Equal(t, Heading, h.Kind)
	require.Equal(t, 2, h.Level)
	require.Equal(t, "intro", h.Anchor)
	require.Equal(t, []Span{{Text: "Hello "}, {Text: "world", Style: Bold}}, h.Spans)

	require.Equal(t, Paragraph, doc.Blocks[1].Kind)
	require.Equal(t, "H7. not a heading", PlainText(doc.Blocks[1].Spans))
}

func TestParse_ListsAndRules(t *testing.T) {
	doc := Parse("* one\n** two\n[hr]\n* three", testOpts)
	require.Len(t, doc.Blocks, 4)
	require.Equal(t, ListItem, doc.Blocks[0].Kind)
	require.Equal(t, 1, doc.Blocks[0].Level)
	require.Equal(t, 2, doc.Blocks[1].Level)
	require.Equal(t, "two", PlainText(doc.Blocks[1].Spans))
	require.Equal(t, Rule, doc.Blocks[2].Kind)
	require.Equal(t, "three", PlainText(doc.Blocks[3].Spans))
}

func TestParse_ParagraphsSplitOnBlankLines(t *testing.T) {
	doc := Parse("first line\r\nsecond line\r\n\r\nnext paragraph", testOpts)
	require.Len(t, doc.Blocks, 2)
	require.Equal(t, "first line\nsecond line", PlainText(doc.Blocks[0].Spans))
	require.Equal(t, "next paragraph", PlainText(doc.Blocks[1].Spans))
}

func TestParse_NestedQuotes(t *testing.T) {
	doc := Parse("[quote]outer [quote]inner[/quote] tail[/quote]after", testOpts)
	require.Len(t, doc.Blocks, 2)

	q := doc.Blocks[0]
	require.Equal(t, Quote, q.Kind)
	require.Len(t, q.Children, 3)
	require.Equal(t, "outer", PlainText(q.Children[0].Spans))
	require.Equal(t, Quote, q.Children[1].Kind)
	require.Equal(t, "inner", PlainText(q.Children[1].Children[0].Spans))
	require.Equal(t, "tail", PlainText(q.Children[2].Spans))
	require.Equal(t, "after", PlainText(doc.Blocks[1].Spans))
}

func TestParse_CodeIsVerbatim(t *testing.T) {
	doc := Parse("before\n[code]\n[b]x[/b] post #1\n[/code]", testOpts)
	require.Len(t, doc.Blocks, 2)
	require.Equal(t, CodeBlock, doc.Blocks[1].Kind)
	require.Equal(t, "[b]x[/b] post #1", doc.Blocks[1].Text)
	require.Empty(t, doc.Blocks[1].Spans)
}

func TestParse_Sections(t *testing.T) {
	doc := Parse("[section,expanded=Notes]body[/section][SECTION]plain[/SECTION]", testOpts)
	require.Len(t, doc.Blocks, 2)

	s := doc.Blocks[0]
	require.Equal(t, Section, s.Kind)
	require.Equal(t, "Notes", s.Title)
	require.True(t, s.Expanded)
	require.Equal(t, "body", PlainText(s.Children[0].Spans))

	require.Empty(t, doc.Blocks[1].Title)
	require.False(t, doc.Blocks[1].Expanded)
}

func TestParse_UnclosedTagsAreLiteral(t *testing.T) {
	doc := Parse("[b]bold and [quote]open", testOpts)
	require.Len(t, doc.Blocks, 1)
	require.Equal(t, []Span{{Text: "[b]bold and [quote]open"}}, doc.Blocks[0].Spans)

	doc = Parse("stray [/i]close [code=x]", testOpts)
	require.Equal(t, "stray [/i]close [code=x]", PlainText(doc.Blocks[0].Spans))
}

func TestParse_InlineStyles(t *testing.T) {
	doc := Parse("`a*b` [color=red]hot[/color] [spoiler]secret[/spoiler] [b][i]both[/i][/b]", testOpts)
	require.Equal(t, []Span{
		{Text: "a*b", Style: Code},
		{Text: " "},
		{Text: "hot", Color: "red"},
		{Text: " "},
		{Text: "secret", Style: Spoiler},
		{Text: " "},
		{Text: "both", Style: Bold | Italic},
	}, doc.Blocks[0].Spans)
}

func TestParse_Links(t *testing.T) {
	src := `See [[Red Panda|pandas]], {{wolf rating:s}}, "site":https://example.com/a. and post #12 or https://e621.net/posts?tags=fox).`
	doc := Parse(src, testOpts)
	require.Equal(t, [][2]string{
		{"pandas", "https://e926.net/wiki_pages/show_or_new?title=red_panda"},
		{"wolf rating:s", "https://e926.net/posts?tags=wolf+rating%3As"},
		{"site", "https://example.com/a"},
		{"post #12", "https://e926.net/posts/12"},
		{"https://e621.net/posts?tags=fox", "https://e621.net/posts?tags=fox"},
	}, links(doc.Blocks))
	require.Equal(t, "See pandas, wolf rating:s, site. and post #12 or https://e621.net/posts?tags=fox).", PlainText(doc.Blocks[0].Spans))
}

func TestParse_ReferenceKinds(t *testing.T) {
	doc := Parse("pool #3 set #4 comment #5 user #6 forum #7 topic #8 wiki #9 repost #10", testOpts)
	require.Equal(t, [][2]string{
		{"pool #3", "https://e926.net/pools/3"},
		{"set #4", "https://e926.net/post_sets/4"},
		{"comment #5", "https://e926.net/comments/5"},
		{"user #6", "https://e926.net/users/6"},
		{"forum #7", "https://e926.net/forum_posts/7"},
		{"topic #8", "https://e926.net/forum_topics/8"},
		{"wiki #9", "https://e926.net/wiki_pages/9"},
	}, links(doc.Blocks))
}

func TestParse_LabeledLinkForms(t *testing.T) {
	doc := Parse(`"help":[/help/dtext] and "wiki":/wiki_pages/1 <https://example.com/x>`, testOpts)
	require.Equal(t, [][2]string{
		{"help", "https://e926.net/help/dtext"},
		{"wiki", "https://e926.net/wiki_pages/1"},
		{"https://example.com/x", "https://example.com/x"},
	}, links(doc.Blocks))
}

func TestParse_DefaultBaseURL(t *testing.T) {
	doc := Parse("post #1", Options{})
	require.Equal(t, "https://e621.net/posts/1", doc.Blocks[0].Spans[0].Href)
}

func TestInline(t *testing.T) {
	spans := Inline("a [i]b[/i]\nc", testOpts)
	require.Equal(t, []Span{{Text: "a "}, {Text: "b", Style: Italic}, {Text: " c"}}, spans)
}

func TestPlain(t *testing.T) {
	doc := Parse("h1.Title\n\n* a\n** b\n[quote]q[/quote][section=S]inside[/section]", testOpts)
	require.Equal(t, "Title\n\n• a\n  • b\n\n> q\n\n▼ S\n  inside", Plain(doc))
}

func TestMarkdown(t *testing.T) {
	doc := Parse("h2.Hi\n[b]bold[/b] and [i]it[/i] [s]gone[/s]\n\n* item_one\n\n1. not a list\nline two", testOpts)
	require.Equal(t,
		"## Hi\n\n**bold** and *it* ~~gone~~\n\n- item\\_one\n\n1\\. not a list\\\nline two",
		Markdown(doc))
}

func TestMarkdown_QuotesAndCode(t *testing.T) {
	doc := Parse("[quote]said\n\n- this[/quote]\n[code]x := 1[/code]", testOpts)
	require.Equal(t, "> said\n>\n> \\- this\n\n```\nx := 1\n```", Markdown(doc))
}

func TestMarkdown_LinksAndSpoilers(t *testing.T) {
	doc := Parse("[[foo bar]] [spoiler]end[/spoiler]", testOpts)
	require.Equal(t,
		"[foo bar](https://e926.net/wiki_pages/show_or_new?title=foo_bar) ||end||",
		Markdown(doc))
}

func TestHTML(t *testing.T) {
	doc := Parse("[b]bold[/b] [spoiler]s[/spoiler] <script>\n\n[section=More]inside[/section]\n[color=#ff0000]red[/color] [color=red;x]bad[/color]", testOpts)
	out, err := HTML(doc)
	require.NoError(t, err)
	require.Contains(t, out, "<strong>bold</strong>")
	require.Contains(t, out, `<span class="spoiler">s</span>`)
	require.Contains(t, out, "&lt;script&gt;")
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "<details>")
	require.Contains(t, out, "<summary>More</summary>")
	require.Contains(t, out, "<p>inside</p>")
	require.Contains(t, out, `<span style="color: #ff0000">red</span>`)
	require.NotContains(t, out, "red;x")
}

func TestParse_OnlyWebLinkSchemes(t *testing.T) {
	src := `"click me":[javascript:alert(1)] "data":[data:text/html,hi] "far"://evil.example/x "ok":[https://e926.net/a]`
	doc := Parse(src, testOpts)
	require.Equal(t, [][2]string{{"ok", "https://e926.net/a"}}, links(doc.Blocks))
	require.Contains(t, Plain(doc), "javascript:alert(1)")

	out, err := HTML(doc)
	require.NoError(t, err)
	require.NotContains(t, out, `href="javascript`)
	require.NotContains(t, out, `href="data`)
	require.Contains(t, out, `href="https://e926.net/a"`)
}

func TestTerminal(t *testing.T) {
	doc := Parse("h1.Title\n\nSome [b]text[/b].", testOpts)
	out, err := Terminal(doc, 40, "notty")
	require.NoError(t, err)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "text")
}
