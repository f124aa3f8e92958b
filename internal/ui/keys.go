package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Search     key.Binding
	Refresh    key.Binding

	// View switching
	ViewPosts    key.Binding
	ViewComments key.Binding
	ViewPools    key.Binding
	ViewWiki     key.Binding
	ViewMail     key.Binding
	ViewFollowed key.Binding
	ViewErrors   key.Binding

	// Post actions
	Favorite key.Binding
	VoteUp   key.Binding
	VoteDown key.Binding
	Download key.Binding
	Open     key.Binding
	Focus    key.Binding

	// Followed tags
	AddFollow    key.Binding
	RemoveFollow key.Binding
	CheckNow     key.Binding
	ClearCounts  key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Prompt
	Confirm    key.Binding
	Complete   key.Binding
	PrevChoice key.Binding
	NextChoice key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),

		// View switching
		ViewPosts: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Posts"),
		),
		ViewComments: key.NewBinding(
			key.WithKeys("2", "c"),
			key.WithHelp("2/c", "Comments"),
		),
		ViewPools: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Pools"),
		),
		ViewWiki: key.NewBinding(
			key.WithKeys("4", "w"),
			key.WithHelp("4/w", "Wiki"),
		),
		ViewMail: key.NewBinding(
			key.WithKeys("5", "m"),
			key.WithHelp("5/m", "Mail"),
		),
		ViewFollowed: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "Followed tags"),
		),
		ViewErrors: key.NewBinding(
			key.WithKeys("7", "p"),
			key.WithHelp("7/p", "Error log"),
		),

		// Post actions
		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Favorite/unfavorite"),
		),
		VoteUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Vote up"),
		),
		VoteDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Vote down"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Download file"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Open in browser"),
		),
		Focus: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Select"),
		),

		// Followed tags
		AddFollow: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Follow a tag"),
		),
		RemoveFollow: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Unfollow / clear"),
		),
		CheckNow: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Check now"),
		),
		ClearCounts: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Mark seen"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "Page down"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		// Prompt
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Complete"),
		),
		PrevChoice: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("up", "Previous suggestion"),
		),
		NextChoice: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("down", "Next suggestion"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewPosts, k.ViewComments, k.ViewPools, k.ViewWiki, k.ViewMail, k.ViewFollowed, k.ViewErrors},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.HalfPageDown, k.HalfPageUp},
		{k.Search, k.Favorite, k.VoteUp, k.VoteDown, k.Download, k.Open},
		{k.AddFollow, k.RemoveFollow, k.CheckNow, k.ClearCounts},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
