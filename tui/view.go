package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/meysamhadeli/astview/utils"
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	activePaneStyle = paneStyle.BorderForeground(lipgloss.Color("170"))
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	spanStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	editorPane := paneStyle
	treePane := paneStyle
	if m.focus == focusEditor {
		editorPane = activePaneStyle
	} else {
		treePane = activePaneStyle
	}

	tree := treePane.
		Width(max(m.width/2-2, 20)).
		Height(max(m.editor.Height(), 5)).
		Render(m.treeView(max(m.editor.Height(), 5)))

	body := lipgloss.JoinHorizontal(lipgloss.Top, editorPane.Render(m.editor.View()), tree)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		body,
		paneStyle.Render(m.preview.View()),
		m.status,
		m.help.View(keys),
	)
}

// treeView lists the laid out nodes indented by depth, scrolled to keep the cursor visible.
func (m Model) treeView(height int) string {
	if len(m.nodes) == 0 {
		return mutedStyle.Render("no tree")
	}

	first := 0
	if m.cursor >= height {
		first = m.cursor - height + 1
	}
	last := min(first+height, len(m.nodes))

	var sb strings.Builder
	for i := first; i < last; i++ {
		node := m.nodes[i]
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", node.Depth), node.Data.Label,
			spanStyle.Render(fmt.Sprintf("[%d,%d)", node.Data.Start, node.Data.End)))
		if i == m.cursor && m.focus == focusTree {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		if i < last-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// refreshPreview renders the working text with the highlighted span marked.
func (m *Model) refreshPreview() {
	text := m.session.Text()
	span, ok := m.session.Highlight()
	if !ok {
		m.preview.SetContent(text)
		return
	}

	var buf bytes.Buffer
	if err := utils.HighlightSpan(&buf, text, span.Start, span.End, m.theme); err != nil {
		m.preview.SetContent(utils.MarkPlain(text, span.Start, span.End, "[", "]"))
		return
	}
	m.preview.SetContent(buf.String())
}
