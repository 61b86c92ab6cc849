package render

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rybkr/gitlane/internal/layout"
)

// Symbols used for the terminal graph.
const (
	SymbolCommit   = "○"
	SymbolMerge    = "●"
	SymbolRoot     = "◆"
	SymbolVertical = "│"
	SymbolSpace    = " "
)

// Terminal renders a layout as a text log, newest commit first, with each
// commit marker drawn in its lane's column.
type Terminal struct {
	// Width truncates lines to this many cells; 0 disables truncation.
	Width int

	renderer *lipgloss.Renderer
}

// NewTerminal returns a renderer for out. Colors and width are detected from
// out when it is a terminal.
func NewTerminal(out io.Writer) *Terminal {
	t := &Terminal{renderer: lipgloss.NewRenderer(out)}
	if f, ok := out.(*os.File); ok {
		t.Width = TerminalWidth(f)
	}
	return t
}

// TerminalWidth returns the column count of f, or 0 if f is not a terminal.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func (t *Terminal) style(color string) lipgloss.Style {
	return t.renderer.NewStyle().Foreground(lipgloss.Color(color))
}

// Render returns the full log as a string.
func (t *Terminal) Render(res layout.Result) string {
	if res.CommitCount() == 0 {
		return t.renderer.NewStyle().Faint(true).Render("No commits") + "\n"
	}

	lanes := res.LaneCount()
	overflow := res.OverflowLane()
	first, last := laneSpans(res, lanes)

	// Branch labels go on the newest commit of each branch.
	labelAt := make(map[int][]string)
	for _, b := range res.Branches {
		for i := len(res.Commits) - 1; i >= 0; i-- {
			if res.Commits[i].Branch == b.Name {
				labelAt[i] = append(labelAt[i], b.Name)
				break
			}
		}
	}

	hashStyle := t.style("#d4a72c")
	tagStyle := t.style("#e15759").Bold(true)
	dim := t.renderer.NewStyle().Faint(true)

	var sb strings.Builder
	for i := len(res.Commits) - 1; i >= 0; i-- {
		lc := res.Commits[i]

		var graph strings.Builder
		for lane := 0; lane < lanes; lane++ {
			switch {
			case lane == lc.Lane:
				graph.WriteString(t.style(laneColor(lane, overflow)).Render(commitSymbol(lc.Commit)))
			case first[lane] <= i && i <= last[lane]:
				graph.WriteString(t.style(laneColor(lane, overflow)).Render(SymbolVertical))
			default:
				graph.WriteString(SymbolSpace)
			}
			graph.WriteString(SymbolSpace)
		}

		line := graph.String() + hashStyle.Render(shortHash(lc.Commit))
		if names := labelAt[i]; len(names) > 0 {
			line += " " + t.style(laneColor(lc.Lane, overflow)).Bold(true).Render("("+strings.Join(names, ", ")+")")
		}
		if len(lc.Commit.Tags) > 0 {
			line += " " + tagStyle.Render("["+strings.Join(lc.Commit.Tags, ", ")+"]")
		}

		msg := lc.Commit.Message
		if lc.Commit.AuthorName != "" {
			msg += " - " + lc.Commit.AuthorName
		}
		if t.Width > 0 {
			msg = truncate(msg, t.Width-lipgloss.Width(line)-1)
		}
		if msg != "" {
			line += " " + dim.Render(msg)
		}

		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// laneSpans returns, per lane, the chronological indices of its oldest and
// newest commit. Unused lanes get an empty span.
func laneSpans(res layout.Result, lanes int) (first, last []int) {
	first = make([]int, lanes)
	last = make([]int, lanes)
	for lane := range first {
		first[lane], last[lane] = len(res.Commits), -1
	}
	for i, lc := range res.Commits {
		if lc.Lane < 0 || lc.Lane >= lanes {
			continue
		}
		first[lc.Lane] = min(first[lc.Lane], i)
		last[lc.Lane] = max(last[lc.Lane], i)
	}
	return first, last
}

func commitSymbol(c layout.Commit) string {
	switch {
	case c.IsMerge:
		return SymbolMerge
	case len(c.Parents) == 0:
		return SymbolRoot
	default:
		return SymbolCommit
	}
}

func shortHash(c layout.Commit) string {
	if c.ShortHash != "" {
		return c.ShortHash
	}
	return layout.Short(c.Hash)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
