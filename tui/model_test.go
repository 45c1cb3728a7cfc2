package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/meysamhadeli/astview/code_analyzer"
	"github.com/meysamhadeli/astview/history"
	"github.com/meysamhadeli/astview/snapshot_store"
	"github.com/meysamhadeli/astview/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, text string) (Model, *workspace.Session) {
	t.Helper()
	store := snapshot_store.New(filepath.Join(t.TempDir(), "astview.db"), snapshot_store.Options{})
	t.Cleanup(func() { store.Close() })
	controller := history.NewController(store, time.Hour, nil)
	analyzer := code_analyzer.NewCodeAnalyzer("", false, nil)
	session := workspace.NewSession(analyzer, controller, workspace.DefaultOptions(), nil)
	session.Load(context.Background())
	session.SetText(context.Background(), text)
	return NewModel(session, 10*time.Millisecond, "dracula"), session
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_ShowsTree(t *testing.T) {
	m, _ := newTestModel(t, "let x = 1;")
	require.NotEmpty(t, m.nodes)
	assert.Equal(t, "Program", m.nodes[0].Data.Label)
	assert.Equal(t, "let x = 1;", m.editor.Value())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, m.View(), "Program")
}

func TestTyping_ReparsesOnlyLatestTick(t *testing.T) {
	m, session := newTestModel(t, "let x = 1;")

	m, cmd := update(t, m, runes(" let y = 2;"))
	assert.NotNil(t, cmd)
	first := m.parseSeq

	m, _ = update(t, m, runes(" "))
	require.Greater(t, m.parseSeq, first)

	// the superseded tick is dropped
	m, _ = update(t, m, reparseMsg{seq: first})
	assert.Equal(t, "let x = 1;", session.Text())

	m, _ = update(t, m, reparseMsg{seq: m.parseSeq})
	assert.Equal(t, "let x = 1; let y = 2; ", session.Text())
	assert.Equal(t, "VariableDeclaration (let)", m.nodes[len(m.nodes)-4].Data.Label)
}

func TestTyping_ParseErrorKeepsTree(t *testing.T) {
	m, _ := newTestModel(t, "let x = 1;")
	count := len(m.nodes)

	m, _ = update(t, m, runes(" +"))
	m, _ = update(t, m, reparseMsg{seq: m.parseSeq})

	assert.Len(t, m.nodes, count)
	assert.Error(t, m.result.Err)
	assert.True(t, m.result.Retained)
	assert.Contains(t, m.status, "showing last valid tree")
}

func TestTreePane_SelectHighlightsSpan(t *testing.T) {
	m, session := newTestModel(t, "let x = 1;")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusTree, m.focus)

	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes("j"))
	assert.Equal(t, 2, m.cursor)

	// keys in the tree pane never reach the editor
	assert.Equal(t, "let x = 1;", m.editor.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	span, ok := session.Highlight()
	require.True(t, ok)
	assert.Equal(t, workspace.Span{Start: 4, End: 9}, span)
	assert.Contains(t, m.status, "VariableDeclarator")

	m, _ = update(t, m, runes("k"))
	m, _ = update(t, m, runes("k"))
	m, _ = update(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestTreePane_ZoomAndReset(t *testing.T) {
	m, session := newTestModel(t, "let x = 1;")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, _ = update(t, m, runes("+"))
	assert.InDelta(t, 1.25, session.Renderer().Transform().K, 1e-9)

	m, _ = update(t, m, runes("0"))
	assert.Equal(t, 1.0, session.Renderer().Transform().K)
	assert.Equal(t, "view reset", m.status)
}

func TestSaveSnapshot(t *testing.T) {
	m, session := newTestModel(t, "let x = 1;")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)

	msg := cmd()
	saved, ok := msg.(snapshotSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)

	m, _ = update(t, m, saved)
	assert.Contains(t, m.status, "saved")
	require.Len(t, session.Snapshots(), 1)
	assert.Equal(t, "let x = 1;", session.Snapshots()[0].Key)
}

func TestQuit_FlushesAutosave(t *testing.T) {
	m, session := newTestModel(t, "let x = 1;")
	assert.True(t, session.History().AutosavePending())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.Empty(t, m.View())

	assert.False(t, session.History().AutosavePending())
	text, err := session.History().CurrentText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;", text)
}
