package widget

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(context.Background(), New(NewView(), &stubSender{reply: "ok"}))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func TestModel_EnterSendsAndRendersReply(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("What does Comprehensive cover?")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	view := m.widget.View()
	assert.True(t, view.Pending())
	assert.Equal(t, "What does Comprehensive cover?", m.input.Value())
	assert.Contains(t, m.View(), "What does Comprehensive cover?")
	assert.Contains(t, m.View(), "typing...")

	next, _ := m.Update(replyMsg{text: "Everything."})
	m = next.(Model)

	assert.False(t, view.Pending())
	assert.Equal(t, "", m.input.Value())
	assert.Contains(t, m.View(), "Everything.")
	assert.NotContains(t, m.View(), "typing...")
}

func TestModel_FailureKeepsInput(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("hello")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(replyMsg{err: errors.New("down")})
	m = next.(Model)

	assert.Equal(t, "hello", m.input.Value())
	assert.Contains(t, m.View(), FailureNotice)
}

func TestModel_EnterOnEmptyInputDoesNothing(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("   ")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, m.widget.View().Transcript().Len())
	assert.Equal(t, "   ", m.input.Value())
}

func TestModel_SecondEnterWhilePendingRaisesAlert(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("one")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.widget.View().Transcript().Len())
	require.Len(t, m.widget.View().Alerts(), 1)
	assert.Contains(t, m.View(), "Still waiting for the previous reply.")
}

func TestModel_ToggleHidesPanel(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("draft")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.False(t, m.widget.View().Open())

	// enter is swallowed while hidden
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, m.widget.View().Transcript().Len())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.True(t, m.widget.View().Open())
	assert.Equal(t, "draft", m.input.Value())
}

func TestModel_QuitKey(t *testing.T) {
	m := newTestModel(t)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
