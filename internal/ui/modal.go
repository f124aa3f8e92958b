package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snout/internal/suggest"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

type promptPurpose int

const (
	promptPosts promptPurpose = iota
	promptPools
	promptWiki
	promptFollow
	promptErrors
)

const (
	suggestDebounce = 250 * time.Millisecond
	suggestTimeout  = 5 * time.Second
	maxShownChoices = 8
)

// promptSubmitMsg carries the text a prompt was confirmed with.
type promptSubmitMsg struct {
	purpose promptPurpose
	value   string
}

type suggestTickMsg struct{ seq int }

type suggestionsMsg struct {
	seq   int
	items []suggest.Suggestion
}

// promptModal is a one-line input with optional search suggestions.
type promptModal struct {
	ctx       context.Context
	purpose   promptPurpose
	title     string
	input     textinput.Model
	suggester *suggest.Suggester

	seq         int
	suggestions []suggest.Suggestion
	choice      int // -1 when no suggestion is highlighted
}

func newPromptModal(ctx context.Context, purpose promptPurpose, title, value string, s *suggest.Suggester) *promptModal {
	ti := textinput.New()
	ti.Placeholder = "Type and press enter..."
	ti.CharLimit = 512
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return &promptModal{
		ctx:       ctx,
		purpose:   purpose,
		title:     title,
		input:     ti,
		suggester: s,
		choice:    -1,
	}
}

// Init blinks the cursor and fetches suggestions for a prefilled value.
func (p *promptModal) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, p.scheduleSuggest())
}

func (p *promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case suggestTickMsg:
		if msg.seq != p.seq {
			return p, nil, false
		}
		return p, p.fetchSuggestions(msg.seq), false

	case suggestionsMsg:
		if msg.seq == p.seq {
			p.suggestions = msg.items
			p.choice = -1
		}
		return p, nil, false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape):
			return p, nil, true

		case key.Matches(msg, keys.Confirm):
			if p.choice >= 0 && p.choice < len(p.suggestions) {
				p.input.SetValue(suggest.Complete(p.input.Value(), p.suggestions[p.choice]))
			}
			submit := promptSubmitMsg{purpose: p.purpose, value: strings.TrimSpace(p.input.Value())}
			return p, func() tea.Msg { return submit }, true

		case key.Matches(msg, keys.Complete):
			if len(p.suggestions) == 0 {
				return p, nil, false
			}
			idx := max(p.choice, 0)
			p.input.SetValue(suggest.Complete(p.input.Value(), p.suggestions[idx]))
			p.input.CursorEnd()
			return p, p.changed(), false

		case key.Matches(msg, keys.NextChoice):
			if n := min(len(p.suggestions), maxShownChoices); n > 0 {
				p.choice = (p.choice + 1) % n
			}
			return p, nil, false

		case key.Matches(msg, keys.PrevChoice):
			if n := min(len(p.suggestions), maxShownChoices); n > 0 {
				if p.choice <= 0 {
					p.choice = n - 1
				} else {
					p.choice--
				}
			}
			return p, nil, false
		}

		before := p.input.Value()
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		if p.input.Value() != before {
			return p, tea.Batch(cmd, p.changed()), false
		}
		return p, cmd, false
	}
	return p, nil, false
}

// changed invalidates shown suggestions and schedules a new lookup.
func (p *promptModal) changed() tea.Cmd {
	p.choice = -1
	return p.scheduleSuggest()
}

func (p *promptModal) scheduleSuggest() tea.Cmd {
	if p.suggester == nil {
		return nil
	}
	p.seq++
	seq := p.seq
	return tea.Tick(suggestDebounce, func(time.Time) tea.Msg {
		return suggestTickMsg{seq: seq}
	})
}

func (p *promptModal) fetchSuggestions(seq int) tea.Cmd {
	s := p.suggester
	query := p.input.Value()
	parent := p.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, suggestTimeout)
		defer cancel()
		items, err := s.Suggest(ctx, query)
		if err != nil {
			// Suggestions are best effort; the prompt keeps working without them.
			return suggestionsMsg{seq: seq}
		}
		return suggestionsMsg{seq: seq, items: items}
	}
}

func (p *promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	modalWidth := min(max(width-10, 30), 72)
	p.input.Width = modalWidth - 8

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(p.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n\n")
	b.WriteString(p.input.View())
	b.WriteString("\n")

	shown := p.suggestions[:min(len(p.suggestions), maxShownChoices)]
	if len(shown) > 0 {
		b.WriteString("\n")
	}
	for i, sg := range shown {
		line := padRight(sg.Name, modalWidth-20)
		meta := sg.Source
		if sg.Source == suggest.SourceTag {
			meta = fmt.Sprintf("%s %s", humanCount(sg.PostCount), sg.Category)
		}
		row := styles.TagStyle(sg.Category).Render(line) + " " + styles.MutedText.Render(meta)
		if sg.Source == suggest.SourceHistory {
			row = styles.Text.Render(line) + " " + styles.FaintText.Render(meta)
		}
		if i == p.choice {
			row = styles.Selected.Render(line + " " + meta)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter confirm · tab complete · ↑/↓ choose · esc cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
