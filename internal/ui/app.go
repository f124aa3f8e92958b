package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/blacklist"
	"github.com/five82/snout/internal/download"
	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/errlog"
	"github.com/five82/snout/internal/prefs"
	"github.com/five82/snout/internal/state"
	"github.com/five82/snout/internal/store"
	"github.com/five82/snout/internal/suggest"
)

// View represents the current active view.
type View int

const (
	ViewPosts View = iota
	ViewComments
	ViewPools
	ViewWiki
	ViewMail
	ViewFollowed
	ViewErrors
	viewCount

	// noView marks failures that belong to no view's loading state.
	noView View = -1
)

var viewNames = [...]string{"Posts", "Comments", "Pools", "Wiki", "Mail", "Followed", "Errors"}

func (v View) String() string {
	if v < 0 || v >= viewCount {
		return "Unknown"
	}
	return viewNames[v]
}

// Client is the subset of the e621 client the UI drives.
type Client interface {
	e621.API
	download.Opener
	BaseURL() string
	PostURL(id int64) string
	HasCredentials() bool
}

// FollowTrigger starts a followed-tag check outside the schedule.
type FollowTrigger interface {
	CheckNow() bool
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Client    Client
	State     *state.Store
	DB        *store.Store
	Errors    *errlog.Log
	Suggester *suggest.Suggester
	// Follow is nil when scheduled checks are disabled.
	Follow      FollowTrigger
	Prefs       prefs.Prefs
	PrefsPath   string
	Blacklist   *blacklist.Blacklist
	DownloadDir string
	// RecordError is called with every failed network call.
	RecordError func(context.Context, error)
	PollTick    time.Duration
	Timeout     time.Duration
	// Query is searched on start.
	Query string
}

// toast is a transient message shown in the header.
type toast struct {
	text   string
	danger bool
	until  time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	client      Client
	state       *state.Store
	db          *store.Store
	errlog      *errlog.Log
	suggester   *suggest.Suggester
	follow      FollowTrigger
	prefs       prefs.Prefs
	prefsPath   string
	blacklist   *blacklist.Blacklist
	downloadDir string
	recordError func(context.Context, error)
	pollTick    time.Duration
	timeout     time.Duration
	initial     string
	now         func() time.Time

	// UI state
	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal
	toast       toast

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	posts    postsState
	comments commentsState
	pools    poolsState
	wiki     wikiState
	mail     mailState
	followed followedState
	errs     errorsState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	p := opts.Prefs
	if p.PostsPerPage == 0 {
		p = prefs.Default()
	}

	return Model{
		ctx:         ctx,
		client:      opts.Client,
		state:       opts.State,
		db:          opts.DB,
		errlog:      opts.Errors,
		suggester:   opts.Suggester,
		follow:      opts.Follow,
		prefs:       p,
		prefsPath:   opts.PrefsPath,
		blacklist:   opts.Blacklist,
		downloadDir: opts.DownloadDir,
		recordError: opts.RecordError,
		pollTick:    pollTick,
		timeout:     timeout,
		initial:     strings.TrimSpace(opts.Query),
		now:         time.Now,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(p.Theme),
		currentView: ViewPosts,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.state != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.state))
	}
	query := m.initial
	if query == "" {
		query = m.prefs.DefaultTags
	}
	cmds = append(cmds, func() tea.Msg { return startSearchMsg{query: query} })
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		switch msg.(type) {
		case tea.KeyMsg, suggestTickMsg, suggestionsMsg:
			modal, cmd, done := m.modal.Update(msg, m.keys)
			if done {
				m.modal = nil
			} else {
				m.modal = modal
			}
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewports()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.now()
		m.clampFollowed()
		return m, nil

	case startSearchMsg:
		return m, m.searchPosts(msg.query)

	case promptSubmitMsg:
		return m.handlePrompt(msg)

	case errMsg:
		m.clearLoading(msg.view)
		m.setToast(msg.text(), true)
		return m, nil

	case infoMsg:
		m.setToast(string(msg), false)
		return m, nil

	case postsLoadedMsg:
		return m.handlePostsLoaded(msg)
	case postUpdatedMsg:
		m.handlePostUpdated(msg)
		return m, nil
	case commentsLoadedMsg:
		m.handleCommentsLoaded(msg)
		return m, nil
	case poolsLoadedMsg:
		m.handlePoolsLoaded(msg)
		return m, nil
	case wikiLoadedMsg:
		m.handleWikiLoaded(msg)
		return m, nil
	case mailListMsg:
		m.handleMailList(msg)
		return m, nil
	case mailReadMsg:
		m.handleMailRead(msg)
		return m, nil
	case followsChangedMsg:
		if msg.note != "" {
			m.setToast(msg.note, false)
		}
		if m.state != nil {
			return m, fetchSnapshotCmd(m.state)
		}
		return m, nil
	case errorsLoadedMsg:
		m.handleErrorsLoaded(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.resizeViewports()
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
				logutil.GetLogger(m.ctx).Warn("save theme failed", zap.Error(err))
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m, m.switchView((m.currentView + 1) % viewCount)

	case key.Matches(msg, m.keys.ShiftTab):
		return m, m.switchView((m.currentView + viewCount - 1) % viewCount)

	case key.Matches(msg, m.keys.ViewPosts):
		return m, m.switchView(ViewPosts)
	case key.Matches(msg, m.keys.ViewComments):
		return m, m.switchView(ViewComments)
	case key.Matches(msg, m.keys.ViewPools):
		return m, m.switchView(ViewPools)
	case key.Matches(msg, m.keys.ViewWiki):
		return m, m.switchView(ViewWiki)
	case key.Matches(msg, m.keys.ViewMail):
		return m, m.switchView(ViewMail)
	case key.Matches(msg, m.keys.ViewFollowed):
		return m, m.switchView(ViewFollowed)
	case key.Matches(msg, m.keys.ViewErrors):
		return m, m.switchView(ViewErrors)
	}

	// View-specific keys
	switch m.currentView {
	case ViewPosts:
		return m.handlePostsKey(msg)
	case ViewComments:
		return m.handleCommentsKey(msg)
	case ViewPools:
		return m.handlePoolsKey(msg)
	case ViewWiki:
		return m.handleWikiKey(msg)
	case ViewMail:
		return m.handleMailKey(msg)
	case ViewFollowed:
		return m.handleFollowedKey(msg)
	case ViewErrors:
		return m.handleErrorsKey(msg)
	}
	return m, nil
}

// switchView makes v current and loads its content when stale.
func (m *Model) switchView(v View) tea.Cmd {
	m.currentView = v
	switch v {
	case ViewComments:
		return m.loadCommentsForSelection()
	case ViewPools:
		if !m.pools.loaded && !m.pools.loading {
			return m.searchPools(m.pools.query)
		}
	case ViewWiki:
		if m.wiki.title == "" && !m.wiki.loading {
			if term := wikiTermForQuery(m.posts.query); term != "" {
				return m.loadWiki(term)
			}
		}
	case ViewMail:
		if !m.mail.loaded && !m.mail.loading {
			return m.loadMail()
		}
	case ViewErrors:
		return m.loadErrors()
	}
	return nil
}

// openPrompt shows the text prompt for purpose.
func (m *Model) openPrompt(purpose promptPurpose, title, value string, withSuggestions bool) tea.Cmd {
	var s *suggest.Suggester
	if withSuggestions {
		s = m.suggester
	}
	prompt := newPromptModal(m.ctx, purpose, title, value, s)
	m.modal = prompt
	return prompt.Init()
}

// handlePrompt dispatches a submitted prompt to the view that opened it.
func (m Model) handlePrompt(msg promptSubmitMsg) (tea.Model, tea.Cmd) {
	switch msg.purpose {
	case promptPosts:
		m.currentView = ViewPosts
		return m, m.searchPosts(msg.value)
	case promptPools:
		return m, m.searchPools(msg.value)
	case promptWiki:
		if strings.TrimSpace(msg.value) == "" {
			return m, nil
		}
		return m, m.loadWiki(msg.value)
	case promptFollow:
		return m, m.addFollow(msg.value)
	case promptErrors:
		m.applyErrorFilter(msg.value)
		return m, nil
	}
	return m, nil
}

// handleTick processes the polling tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.state != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.state))
	}
	if m.toast.text != "" && !now.Before(m.toast.until) {
		m.toast = toast{}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) setToast(text string, danger bool) {
	m.toast = toast{text: text, danger: danger, until: m.now().Add(ToastDuration)}
}

func (m *Model) clearLoading(v View) {
	switch v {
	case ViewPosts:
		m.posts.loading = false
	case ViewComments:
		m.comments.loading = false
	case ViewPools:
		m.pools.loading = false
	case ViewWiki:
		m.wiki.loading = false
	case ViewMail:
		m.mail.loading = false
	}
}

// resizeViewports applies the window size to every scrolling pane.
func (m *Model) resizeViewports() {
	if !m.ready {
		return
	}
	m.resizePostDetail()
	m.resizeComments()
	m.resizeWiki()
	m.resizeMail()
	m.resizeErrors()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewPosts:
		return m.renderPosts()
	case ViewComments:
		return m.renderComments()
	case ViewPools:
		return m.renderPools()
	case ViewWiki:
		return m.renderWiki()
	case ViewMail:
		return m.renderMail()
	case ViewFollowed:
		return m.renderFollowed()
	case ViewErrors:
		return m.renderErrors()
	default:
		return ""
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
