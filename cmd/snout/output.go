package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// printer writes command output, styled when stdout is a terminal and plain
// text otherwise so pipes and scripts get stable columns.
type printer struct {
	w      io.Writer
	styled bool

	heading lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
}

func newPrinter(f *os.File) *printer {
	styled := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	p := &printer{w: f, styled: styled}
	if styled {
		p.heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#719cd6"))
		p.label = lipgloss.NewStyle().Foreground(lipgloss.Color("#738091"))
		p.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#71839b"))
		p.good = lipgloss.NewStyle().Foreground(lipgloss.Color("#81b29a"))
		p.bad = lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d"))
	}
	return p
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) Println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

func (p *printer) Heading(s string) {
	fmt.Fprintln(p.w, p.heading.Render(s))
}

// Field prints an aligned "label  value" line. Empty values are skipped.
func (p *printer) Field(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(fmt.Sprintf("%-12s", label)), value)
}

func (p *printer) Muted(s string) string { return p.muted.Render(s) }
func (p *printer) Good(s string) string  { return p.good.Render(s) }
func (p *printer) Bad(s string) string   { return p.bad.Render(s) }

// Table prints rows under headers. Plain output has no borders.
func (p *printer) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, p.muted.Render("(none)"))
		return
	}
	t := table.New().Headers(headers...).Rows(rows...)
	if p.styled {
		headerStyle := p.heading.PaddingRight(1).PaddingLeft(1)
		cell := lipgloss.NewStyle().PaddingRight(1).PaddingLeft(1)
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(p.muted).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cell
			})
	} else {
		cell := lipgloss.NewStyle().PaddingRight(2)
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).BorderBottom(false).
			BorderLeft(false).BorderRight(false).
			BorderColumn(false).BorderHeader(false).
			StyleFunc(func(row, col int) lipgloss.Style { return cell })
	}
	fmt.Fprintln(p.w, t.String())
}

// JSON prints v indented.
func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
