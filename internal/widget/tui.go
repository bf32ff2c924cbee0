package widget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25")).Padding(0, 1)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("221")).Padding(0, 1)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
)

type (
	replyMsg struct {
		text string
		err  error
	}
	tickMsg time.Time
)

// Model is the bubbletea program around a Widget.
type Model struct {
	widget   *Widget
	ctx      context.Context
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	scrolled int
	ready    bool
}

// NewModel mounts w and returns the program model. ctx bounds every request.
func NewModel(ctx context.Context, w *Widget) Model {
	w.Mount()

	ti := textinput.New()
	ti.Placeholder = "Ask about cars, quotes or insurance products..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle))

	return Model{
		widget:   w,
		ctx:      ctx,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 16),
		help:     help.New(),
	}
}

// Run starts the terminal UI and blocks until the user quits.
func Run(ctx context.Context, w *Widget) error {
	_, err := tea.NewProgram(NewModel(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (m Model) send(text string) tea.Cmd {
	sender := m.widget.sender
	ctx := m.ctx
	return func() tea.Msg {
		reply, err := sender.Send(ctx, text)
		return replyMsg{text: reply, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	view := m.widget.View()
	hints := view.Hints()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, hints.Quit):
			return m, tea.Quit
		case key.Matches(msg, hints.Toggle):
			m.widget.Toggle()
			if view.Open() {
				m.input.Focus()
			} else {
				m.input.Blur()
			}
			return m, nil
		case key.Matches(msg, hints.Send):
			// Enter never reaches the text input.
			if !view.Open() {
				return m, nil
			}
			view.SetInput(m.input.Value())
			text, err := m.widget.Begin()
			switch {
			case errors.Is(err, ErrEmptyMessage):
				return m, nil
			case errors.Is(err, ErrSendInFlight):
				view.AddAlert("Still waiting for the previous reply.", time.Now())
				return m, nil
			}
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.send(text))
		}

	case replyMsg:
		m.widget.Complete(msg.text, msg.err)
		if view.Input() == "" {
			m.input.Reset()
		}
		m.refresh()
		return m, nil

	case tickMsg:
		view.DismissExpired(time.Time(msg))
		return m, tick()

	case spinner.TickMsg:
		if !view.Pending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.WindowSizeMsg:
		// header, alerts, input, help
		chrome := 7
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width
		m.ready = true
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	if view.Open() {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// refresh re-renders the transcript and follows scroll requests.
func (m *Model) refresh() {
	view := m.widget.View()
	m.viewport.SetContent(m.renderTranscript())
	if n := view.Scrolls(); n != m.scrolled {
		m.scrolled = n
		m.viewport.GotoBottom()
	}
}

func (m Model) renderTranscript() string {
	view := m.widget.View()
	width := m.viewport.Width
	var b strings.Builder
	for _, msg := range view.Transcript().Messages() {
		var line string
		switch msg.Role {
		case RoleUser:
			line = userStyle.Render("You: ") + msg.Text
		case RoleBot:
			line = botStyle.Render("Assistant: ") + msg.Text
		case RoleError:
			line = errorStyle.Render(msg.Text)
		}
		b.WriteString(lipgloss.NewStyle().Width(width).Render(line))
		b.WriteString("\n")
	}
	if view.Pending() {
		b.WriteString(m.spinner.View() + pendingStyle.Render(" typing..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) View() string {
	view := m.widget.View()
	var b strings.Builder

	b.WriteString(headerStyle.Render("SafeDrive Assistant"))
	b.WriteString("\n")
	for _, a := range view.Alerts() {
		b.WriteString(alertStyle.Render(a.Text))
		b.WriteString("\n")
	}

	if view.Open() {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(view.Hints()))
	return b.String()
}
