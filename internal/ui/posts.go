package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/download"
	"github.com/five82/snout/internal/dtext"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/prefs"
)

// prefetchRows is how close to the end of the list the next page is requested.
const prefetchRows = 5

const downloadTimeout = 10 * time.Minute

// postsState holds the search results and paging cursor.
type postsState struct {
	query     string
	posts     []e621.Post
	hidden    int
	page      int
	seq       int
	loading   bool
	exhausted bool
	selected  int

	focusedPane int // 0 = list, 1 = detail
	detail      viewport.Model
	detailFor   int64
}

type postsLoadedMsg struct {
	seq    int
	page   int
	posts  []e621.Post
	raw    int
	hidden int
}

type postUpdatedMsg struct {
	post e621.Post
	note string
}

// effectiveQuery adds the rating filter, sort order and deleted-post
// preferences to query unless it already names them.
func effectiveQuery(query string, p prefs.Prefs) string {
	terms := strings.Fields(query)
	has := func(prefix string) bool {
		for _, t := range terms {
			if strings.HasPrefix(strings.TrimLeft(strings.ToLower(t), "-~"), prefix) {
				return true
			}
		}
		return false
	}

	if !has("rating:") {
		var allowed []string
		for _, r := range []string{e621.RatingSafe, e621.RatingQuestionable, e621.RatingExplicit} {
			if slices.Contains(p.RatingFilter, r) {
				allowed = append(allowed, r)
			}
		}
		switch len(allowed) {
		case 1:
			terms = append(terms, "rating:"+allowed[0])
		case 2:
			for _, r := range []string{e621.RatingSafe, e621.RatingQuestionable, e621.RatingExplicit} {
				if !slices.Contains(allowed, r) {
					terms = append(terms, "-rating:"+r)
				}
			}
		}
	}
	if p.SortOrder != "" && !has("order:") {
		terms = append(terms, "order:"+p.SortOrder)
	}
	if p.ShowDeleted && !has("status:") {
		terms = append(terms, "status:any")
	}
	return strings.Join(terms, " ")
}

// searchPosts replaces the results with the first page of query.
func (m *Model) searchPosts(query string) tea.Cmd {
	query = strings.Join(strings.Fields(query), " ")
	m.posts.query = query
	m.posts.posts = nil
	m.posts.hidden = 0
	m.posts.page = 0
	m.posts.selected = 0
	m.posts.exhausted = false
	m.posts.focusedPane = 0
	m.posts.detailFor = 0
	m.posts.seq++
	m.posts.loading = true

	cmds := []tea.Cmd{m.fetchPosts(query, 1, m.posts.seq)}
	if query != "" && m.prefs.SaveSearchHistory && m.db != nil {
		cmds = append(cmds, m.recordSearch(query))
	}
	return tea.Batch(cmds...)
}

// nextPage requests the page after the last one loaded.
func (m *Model) nextPage() tea.Cmd {
	if m.posts.loading || m.posts.exhausted || m.posts.page == 0 {
		return nil
	}
	m.posts.loading = true
	return m.fetchPosts(m.posts.query, m.posts.page+1, m.posts.seq)
}

func (m Model) fetchPosts(query string, page, seq int) tea.Cmd {
	client := m.client
	limit := m.prefs.PostsPerPage
	tags := effectiveQuery(query, m.prefs)
	hide := m.prefs.HideBlacklisted
	bl := m.blacklist
	return m.call(func(ctx context.Context) tea.Msg {
		result, err := client.SearchPostPage(ctx, e621.PostQuery{Tags: tags, Page: page, Limit: limit})
		if err != nil {
			return errMsg{view: ViewPosts, op: "Search", err: err}
		}
		posts, raw := result.Posts, result.Returned
		hidden := 0
		if hide {
			posts, hidden = bl.Filter(posts)
		}
		return postsLoadedMsg{seq: seq, page: page, posts: posts, raw: raw, hidden: hidden}
	})
}

func (m Model) recordSearch(query string) tea.Cmd {
	db := m.db
	limit := m.prefs.HistoryLimit
	now := m.now()
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, m.timeout)
		defer cancel()
		if err := db.RecordSearch(ctx, query, now); err != nil {
			logutil.GetLogger(ctx).Warn("record search failed", zap.Error(err))
			return nil
		}
		if limit > 0 {
			if err := db.PruneHistory(ctx, limit); err != nil {
				logutil.GetLogger(ctx).Warn("prune search history failed", zap.Error(err))
			}
		}
		return nil
	}
}

func (m Model) handlePostsLoaded(msg postsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.posts.seq {
		return m, nil
	}
	m.posts.loading = false
	m.posts.page = msg.page
	m.posts.hidden += msg.hidden
	m.posts.exhausted = msg.raw < m.prefs.PostsPerPage

	seen := make(map[int64]struct{}, len(m.posts.posts))
	for _, p := range m.posts.posts {
		seen[p.ID] = struct{}{}
	}
	// Pages shift when posts are uploaded between requests.
	for _, p := range msg.posts {
		if _, dup := seen[p.ID]; !dup {
			m.posts.posts = append(m.posts.posts, p)
		}
	}
	m.updatePostDetail()

	// Every post on the page was blacklisted; keep going so the list fills.
	if len(msg.posts) == 0 && msg.raw > 0 && !m.posts.exhausted {
		return m, m.nextPage()
	}
	return m, nil
}

func (m *Model) handlePostUpdated(msg postUpdatedMsg) {
	for i := range m.posts.posts {
		if m.posts.posts[i].ID == msg.post.ID {
			m.posts.posts[i] = msg.post
		}
	}
	m.posts.detailFor = 0
	m.updatePostDetail()
	if msg.note != "" {
		m.setToast(msg.note, false)
	}
}

func (m Model) selectedPost() (e621.Post, bool) {
	if m.posts.selected < 0 || m.posts.selected >= len(m.posts.posts) {
		return e621.Post{}, false
	}
	return m.posts.posts[m.posts.selected], true
}

// handlePostsKey processes keyboard input for the posts view.
func (m Model) handlePostsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.openPrompt(promptPosts, "Search posts", m.posts.query+" ", true)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.searchPosts(m.posts.query)

	case key.Matches(msg, m.keys.Escape):
		m.posts.focusedPane = 0
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if len(m.posts.posts) > 0 {
			m.posts.focusedPane = 1 - m.posts.focusedPane
		}
		return m, nil

	case key.Matches(msg, m.keys.AddFollow):
		if m.posts.query == "" {
			return m, nil
		}
		return m, m.addFollow(m.posts.query)
	}

	post, ok := m.selectedPost()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Favorite):
		return m, m.toggleFavorite(post)
	case key.Matches(msg, m.keys.VoteUp):
		return m, m.vote(post, 1)
	case key.Matches(msg, m.keys.VoteDown):
		return m, m.vote(post, -1)
	case key.Matches(msg, m.keys.Download):
		return m, m.downloadPost(post)
	case key.Matches(msg, m.keys.Open):
		return m, openURLCmd(m.prefs.OpenCommand, m.client.PostURL(post.ID))
	}

	if m.posts.focusedPane == 1 {
		m.scrollViewport(&m.posts.detail, msg)
		return m, nil
	}

	count := len(m.posts.posts)
	page := max(m.contentHeight()-2, 1)
	switch {
	case key.Matches(msg, m.keys.Down):
		m.posts.selected = min(m.posts.selected+1, count-1)
	case key.Matches(msg, m.keys.Up):
		m.posts.selected = max(m.posts.selected-1, 0)
	case key.Matches(msg, m.keys.PageDown), key.Matches(msg, m.keys.HalfPageDown):
		m.posts.selected = min(m.posts.selected+page/2, count-1)
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.HalfPageUp):
		m.posts.selected = max(m.posts.selected-page/2, 0)
	case key.Matches(msg, m.keys.Top):
		m.posts.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.posts.selected = count - 1
	default:
		return m, nil
	}
	m.updatePostDetail()
	if m.posts.selected >= count-prefetchRows {
		return m, m.nextPage()
	}
	return m, nil
}

func (m Model) toggleFavorite(post e621.Post) tea.Cmd {
	if !m.client.HasCredentials() {
		return infoCmd("Log in with `snout login` to favorite posts")
	}
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		if post.IsFavorited {
			if err := client.Unfavorite(ctx, post.ID); err != nil {
				return errMsg{view: noView, op: "Unfavorite", err: err}
			}
			post.IsFavorited = false
			post.FavCount = max(post.FavCount-1, 0)
			return postUpdatedMsg{post: post, note: fmt.Sprintf("Removed #%d from favorites", post.ID)}
		}
		updated, err := client.Favorite(ctx, post.ID)
		if err != nil {
			return errMsg{view: noView, op: "Favorite", err: err}
		}
		updated.IsFavorited = true
		return postUpdatedMsg{post: *updated, note: fmt.Sprintf("Added #%d to favorites", post.ID)}
	})
}

func (m Model) vote(post e621.Post, score int) tea.Cmd {
	if !m.client.HasCredentials() {
		return infoCmd("Log in with `snout login` to vote")
	}
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		res, err := client.Vote(ctx, post.ID, score, false)
		if err != nil {
			return errMsg{view: noView, op: "Vote", err: err}
		}
		post.Score = e621.PostScore{Up: res.Up, Down: res.Down, Total: res.Score}
		note := fmt.Sprintf("Vote on #%d removed", post.ID)
		switch {
		case res.OurScore > 0:
			note = fmt.Sprintf("Voted #%d up", post.ID)
		case res.OurScore < 0:
			note = fmt.Sprintf("Voted #%d down", post.ID)
		}
		return postUpdatedMsg{post: post, note: note}
	})
}

func (m Model) downloadPost(post e621.Post) tea.Cmd {
	client := m.client
	opts := download.Options{Dir: m.downloadDir, Template: m.prefs.DownloadNameTemplate}
	return m.callWithin(downloadTimeout, func(ctx context.Context) tea.Msg {
		res, err := download.Save(ctx, client, post, opts)
		if err != nil {
			return errMsg{view: noView, op: "Download", err: err}
		}
		if res.Skipped {
			return infoMsg("Already saved: " + truncateMiddle(res.Path, 60))
		}
		return infoMsg(fmt.Sprintf("Saved %s (%s)", truncateMiddle(res.Path, 60), humanBytes(res.Bytes)))
	})
}

func infoCmd(text string) tea.Cmd {
	return func() tea.Msg { return infoMsg(text) }
}

// scrollViewport applies navigation keys to a viewport.
func (m Model) scrollViewport(vp *viewport.Model, msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		vp.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		vp.HalfPageUp()
	case key.Matches(msg, m.keys.PageDown):
		vp.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		vp.PageUp()
	case key.Matches(msg, m.keys.Top):
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	}
}

func (m *Model) resizePostDetail() {
	_, detailWidth := splitWidths(m.width)
	m.posts.detail.Width = max(detailWidth-4, 10)
	m.posts.detail.Height = max(m.contentHeight()-2, 1)
	m.posts.detailFor = 0
	m.updatePostDetail()
}

// updatePostDetail re-renders the detail pane when the selection changed.
func (m *Model) updatePostDetail() {
	post, ok := m.selectedPost()
	if !ok {
		m.posts.detail.SetContent("")
		m.posts.detailFor = 0
		return
	}
	if post.ID == m.posts.detailFor {
		return
	}
	m.posts.detailFor = post.ID
	m.posts.detail.SetContent(m.renderPostDetail(post, m.posts.detail.Width))
	m.posts.detail.GotoTop()
}

// renderPosts renders the posts view with split layout (list + detail).
func (m Model) renderPosts() string {
	if len(m.posts.posts) == 0 {
		switch {
		case m.posts.loading:
			return m.renderEmpty("Searching...")
		case m.posts.hidden > 0:
			return m.renderEmpty(fmt.Sprintf("All %d results are blacklisted", m.posts.hidden))
		default:
			return m.renderEmpty("No posts. Press / to search")
		}
	}

	height := m.contentHeight()
	listWidth, detailWidth := splitWidths(m.width)

	listFocused := m.posts.focusedPane == 0
	listBg := ternary(listFocused, m.theme.FocusBg, m.theme.SurfaceAlt)
	list := m.renderPostList(listWidth-2, height-2, listBg)
	listPane := m.renderTitledBox(m.postsTitle(), list, listWidth, height, listFocused)

	detailPane := m.renderTitledBox("Details", m.posts.detail.View(), detailWidth, height, !listFocused)
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

func (m Model) postsTitle() string {
	title := "Posts"
	if m.posts.query != "" {
		title = m.posts.query
	}
	suffix := fmt.Sprintf(" (%d", len(m.posts.posts))
	if !m.posts.exhausted {
		suffix += "+"
	}
	if m.posts.hidden > 0 {
		suffix += fmt.Sprintf(", %d hidden", m.posts.hidden)
	}
	suffix += ")"
	if m.posts.loading {
		suffix += " …"
	}
	return title + suffix
}

func (m Model) renderPostList(width, rows int, bgColor string) string {
	start, end := visibleWindow(len(m.posts.posts), m.posts.selected, rows)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		selected := i == m.posts.selected
		rowBg := ternary(selected, m.theme.SelectionBg, bgColor)
		lines = append(lines, NewBgStyle(rowBg).FillLine(m.formatPostRow(m.posts.posts[i], width, rowBg, selected), width))
	}
	return strings.Join(lines, "\n")
}

// formatPostRow formats a post row: "#ID R ▲score ♥favs ext artist".
func (m Model) formatPostRow(post e621.Post, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	idStyle, textStyle, mutedStyle := styles.MutedText, styles.Text, styles.FaintText
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		idStyle, textStyle, mutedStyle = sel, sel, sel
	}

	parts := []string{
		bg.Render(fmt.Sprintf("#%-8d", post.ID), idStyle),
		styles.RatingBadge(post.Rating).Render(strings.ToUpper(post.Rating)),
	}
	if m.prefs.ShowScores && width >= 40 {
		parts = append(parts, bg.Render(fmt.Sprintf("▲%-5s", humanCount(post.Score.Total)), textStyle))
		parts = append(parts, bg.Render(fmt.Sprintf("♥%-5s", humanCount(post.FavCount)), mutedStyle))
	}
	parts = append(parts, bg.Render(padRight(post.File.Ext, 4), mutedStyle))

	artist := "unknown"
	if len(post.Tags.Artist) > 0 {
		artist = strings.Join(post.Tags.Artist, ", ")
	}
	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p) + 1
	}
	markers := ""
	if post.IsFavorited {
		markers += "♥"
	}
	if !m.prefs.HideBlacklisted && m.blacklist.Matches(post) {
		markers += "⊘"
	}
	parts = append(parts, bg.Render(truncate(artist, max(width-used-len(markers)-2, 4)), textStyle))
	if markers != "" {
		parts = append(parts, bg.Render(markers, styles.DangerText))
	}
	return bg.Join(parts, " ")
}

// renderPostDetail renders the metadata, tags and description of post.
func (m Model) renderPostDetail(post e621.Post, width int) string {
	styles := m.theme.Styles()
	var b strings.Builder

	label := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.MutedText.Render(padRight(name, 10)))
		b.WriteString(styles.Text.Render(value))
		b.WriteString("\n")
	}

	b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("Post #%d", post.ID)))
	b.WriteString(" ")
	b.WriteString(styles.RatingBadge(post.Rating).Render(post.RatingLabel()))
	if post.IsFavorited {
		b.WriteString(" ")
		b.WriteString(styles.DangerText.Render("♥ favorite"))
	}
	if post.Flags.Deleted {
		b.WriteString(" ")
		b.WriteString(styles.WarningText.Render("deleted"))
	}
	b.WriteString("\n\n")

	label("Score", fmt.Sprintf("%d (▲%d ▼%d)", post.Score.Total, post.Score.Up, abs(post.Score.Down)))
	label("Favorites", fmt.Sprintf("%d", post.FavCount))
	label("File", fmt.Sprintf("%s %dx%d %s", post.File.Ext, post.File.Width, post.File.Height, humanBytes(post.File.Size)))
	if post.Duration != nil {
		label("Duration", fmt.Sprintf("%.1fs", *post.Duration))
	}
	if created := post.ParsedCreatedAt(); !created.IsZero() {
		label("Posted", relativeTime(created, m.now(), m.prefs.DateFormat))
	}
	label("Comments", fmt.Sprintf("%d", post.CommentCount))
	if len(post.Pools) > 0 {
		ids := make([]string, len(post.Pools))
		for i, id := range post.Pools {
			ids[i] = fmt.Sprintf("%d", id)
		}
		label("Pools", strings.Join(ids, ", "))
	}
	if post.Relationships.ParentID != nil {
		label("Parent", fmt.Sprintf("#%d", *post.Relationships.ParentID))
	}
	if len(post.Relationships.Children) > 0 {
		label("Children", fmt.Sprintf("%d", len(post.Relationships.Children)))
	}
	label("URL", post.BestURL(m.prefs.PreviewQuality))

	for _, group := range post.Tags.Categories() {
		b.WriteString("\n")
		style := styles.Text
		if m.prefs.ShowTagCategories {
			style = styles.TagStyle(group.Name)
		}
		b.WriteString(styles.MutedText.Bold(true).Render(group.Name))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(style.Render(strings.Join(group.Tags, " "))))
		b.WriteString("\n")
	}

	if len(post.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Bold(true).Render("sources"))
		b.WriteString("\n")
		for _, src := range post.Sources {
			b.WriteString(styles.InfoText.Render(truncate(src, width)))
			b.WriteString("\n")
		}
	}

	if desc := strings.TrimSpace(post.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Bold(true).Render("description"))
		b.WriteString("\n")
		text := dtext.Plain(dtext.Parse(desc, dtext.Options{BaseURL: m.baseURL()}))
		b.WriteString(lipgloss.NewStyle().Width(width).Render(text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) baseURL() string {
	if m.client == nil {
		return ""
	}
	return m.client.BaseURL()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
