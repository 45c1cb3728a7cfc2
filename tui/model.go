package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/meysamhadeli/astview/layout"
	"github.com/meysamhadeli/astview/workspace"
)

type focusedPane int

const (
	focusEditor focusedPane = iota
	focusTree
)

// reparseMsg fires when the editor has been quiet for the parse delay.
type reparseMsg struct {
	seq int
}

type snapshotSavedMsg struct {
	id  int64
	err error
}

// Model is the interactive explorer: an editor on the left, the laid out tree on the right
// and the source with the selected span below.
type Model struct {
	session    *workspace.Session
	parseDelay time.Duration
	theme      string

	editor  textarea.Model
	preview viewport.Model
	help    help.Model

	width  int
	height int

	focus    focusedPane
	cursor   int
	parseSeq int
	nodes    []*layout.Node
	result   workspace.Result
	status   string
	quitting bool
}

// NewModel builds the explorer around an already loaded session.
func NewModel(session *workspace.Session, parseDelay time.Duration, theme string) Model {
	editor := textarea.New()
	editor.Placeholder = "// Write JavaScript here..."
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.FocusedStyle.CursorLine = lipgloss.NewStyle()
	editor.SetValue(session.Text())
	editor.Focus()

	m := Model{
		session:    session,
		parseDelay: parseDelay,
		theme:      theme,
		editor:     editor,
		preview:    viewport.New(0, 0),
		help:       help.New(),
		focus:      focusEditor,
	}
	m.applyResult(session.Result())
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateSizes()
		return m, nil

	case reparseMsg:
		// a newer keystroke superseded this tick
		if msg.seq != m.parseSeq {
			return m, nil
		}
		m.applyResult(m.session.SetText(context.Background(), m.editor.Value()))
		return m, nil

	case snapshotSavedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("save failed: %v", msg.err))
		} else {
			m.status = okStyle.Render(fmt.Sprintf("snapshot #%d saved (%d total)", msg.id, len(m.session.Snapshots())))
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			if err := m.session.Close(); err != nil {
				m.status = errorStyle.Render(fmt.Sprintf("autosave failed: %v", err))
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Focus):
			m.toggleFocus()
			return m, nil
		case key.Matches(msg, keys.Save):
			return m, m.saveSnapshot()
		}

		if m.focus == focusTree {
			m.updateTree(msg)
			return m, nil
		}

		before := m.editor.Value()
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		if m.editor.Value() != before {
			m.parseSeq++
			seq := m.parseSeq
			tick := tea.Tick(m.parseDelay, func(time.Time) tea.Msg { return reparseMsg{seq: seq} })
			return m, tea.Batch(cmd, tick)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusEditor {
		m.focus = focusTree
		m.editor.Blur()
		return
	}
	m.focus = focusEditor
	m.editor.Focus()
}

func (m *Model) updateTree(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.nodes)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Select):
		if node, ok := m.session.Select(m.cursor); ok {
			m.status = fmt.Sprintf("%s [%d, %d)", node.Label.Text, node.Start, node.End)
			m.refreshPreview()
		}
	case key.Matches(msg, keys.ZoomIn):
		factor := 1.25
		if msg.String() == "-" {
			factor = 0.8
		}
		w, h := m.session.Renderer().Size()
		t := m.session.Renderer().Zoom(factor, w/2, h/2)
		m.status = fmt.Sprintf("zoom %.2fx", t.K)
	case key.Matches(msg, keys.Reset):
		m.session.Renderer().ResetView()
		m.status = "view reset"
	}
}

func (m Model) saveSnapshot() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		id, err := session.SaveSnapshot(context.Background())
		return snapshotSavedMsg{id: id, err: err}
	}
}

func (m *Model) applyResult(result workspace.Result) {
	m.result = result
	m.nodes = layout.Descendants(result.Layout)
	if m.cursor >= len(m.nodes) {
		m.cursor = max(len(m.nodes)-1, 0)
	}
	switch {
	case result.Err != nil && result.Retained:
		m.status = errorStyle.Render(result.Err.Error()) + mutedStyle.Render(" (showing last valid tree)")
	case result.Err != nil:
		m.status = errorStyle.Render(result.Err.Error())
	default:
		m.status = mutedStyle.Render(fmt.Sprintf("%d nodes", len(m.nodes)))
	}
	m.refreshPreview()
}

func (m *Model) updateSizes() {
	paneWidth := max(m.width/2-2, 20)
	bodyHeight := max(m.height*2/3-2, 5)
	m.editor.SetWidth(paneWidth)
	m.editor.SetHeight(bodyHeight)
	m.preview.Width = max(m.width-2, 20)
	m.preview.Height = max(m.height-bodyHeight-6, 3)
	m.help.Width = m.width
	m.refreshPreview()
}

// Run starts the explorer on the alternate screen and blocks until the user quits.
func Run(ctx context.Context, session *workspace.Session, parseDelay time.Duration, theme string) error {
	program := tea.NewProgram(NewModel(session, parseDelay, theme), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
