// Package tui is the terminal command palette. It is a thin front-end: all
// parsing and execution happen in the daemon, reached through Daemon.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/types"
	"github.com/rafabd1/Paleta/pkg/events"
)

const (
	pollWait       = time.Second
	closeInterval  = 500 * time.Millisecond
	requestTimeout = 5 * time.Second
	maxSuggestions = 5
)

// Daemon is the part of the HTTP client the palette uses.
type Daemon interface {
	Suggest(ctx context.Context, text string) (suggest.Result, error)
	Submit(ctx context.Context, text string) (string, error)
	Resolve(ctx context.Context, r clarify.Resolution) (string, error)
	Result(ctx context.Context, wait time.Duration) (types.Result, bool, error)
	Clarification(ctx context.Context, wait time.Duration) (types.Clarification, bool, error)
	CloseRequested(ctx context.Context) (bool, error)
}

type mode int

const (
	modeInput mode = iota
	modeWaiting
	modeClarify
)

type closeTickMsg struct{}

// Model is the palette state.
type Model struct {
	daemon   Daemon
	input    textarea.Model
	viewport viewport.Model
	mode     mode

	suggestions suggest.Result
	clarifying  types.Clarification
	pending     string // ID of the submission being waited on
	status      string
	isError     bool
	width       int

	titleStyle lipgloss.Style
	hintStyle  lipgloss.Style
	errorStyle lipgloss.Style
	itemStyle  lipgloss.Style
}

func New(d Daemon) *Model {
	ta := textarea.New()
	ta.Placeholder = "Type a command..."
	ta.Prompt = "> "
	ta.CharLimit = 500
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	return &Model{
		daemon:     d,
		input:      ta,
		viewport:   viewport.New(60, 10),
		width:      60,
		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		hintStyle:  lipgloss.NewStyle().Faint(true),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		itemStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, closeTick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6-maxSuggestions, 3)
		return m, nil

	case events.SuggestionsMsg:
		if msg.Query == m.input.Value() {
			m.suggestions = msg.Result
		}
		return m, nil

	case events.SubmittedMsg:
		m.pending = msg.ID
		return m, m.poll()

	case events.PendingMsg:
		if m.mode != modeWaiting {
			return m, nil
		}
		return m, m.poll()

	case events.CancelledMsg:
		m.mode = modeInput
		m.input.Reset()
		m.setStatus("Cancelled.", false)
		return m, nil

	case events.ResultMsg:
		if m.mode == modeWaiting && msg.Result.ID != "" && msg.Result.ID != m.pending {
			// left over from an earlier submission
			return m, m.poll()
		}
		return m.showResult(msg.Result)

	case events.ClarificationMsg:
		m.mode = modeClarify
		m.clarifying = msg.Clarification
		m.input.SetValue(msg.Clarification.Text)
		m.setStatus(msg.Clarification.Reason+" (Enter to run, Esc to cancel)", false)
		return m, nil

	case events.ErrorMsg:
		if m.mode == modeWaiting {
			m.mode = modeInput
		}
		if errors.Is(msg.Err, engine.ErrEngineBusy) {
			m.setStatus("Still working on the previous command, try again in a moment.", true)
		} else {
			m.setStatus(msg.Err.Error(), true)
		}
		return m, nil

	case events.CloseMsg:
		return m, tea.Quit

	case closeTickMsg:
		return m, m.checkClose()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		if m.mode == modeClarify {
			return m, m.resolve(clarify.Resolution{Cancel: true})
		}
		return m, tea.Quit

	case tea.KeyTab:
		if m.mode == modeInput && m.suggestions.Hint != "" {
			m.input.SetValue(m.suggestions.Hint)
			m.input.CursorEnd()
			return m, m.suggest(m.input.Value())
		}
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		switch m.mode {
		case modeInput:
			if text == "" {
				return m, nil
			}
			m.mode = modeWaiting
			m.suggestions = suggest.Result{}
			m.setStatus("Working...", false)
			return m, m.submit(text)
		case modeClarify:
			if text == "" {
				return m, nil
			}
			m.mode = modeWaiting
			m.setStatus("Working...", false)
			return m, m.resolve(clarify.Resolution{Text: text})
		}
		return m, nil
	}

	if m.mode == modeWaiting {
		return m, nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeInput && m.input.Value() != before {
		return m, tea.Batch(cmd, m.suggest(m.input.Value()))
	}
	return m, cmd
}

// showResult quits on the completion sentinel and renders anything else.
func (m *Model) showResult(res types.Result) (tea.Model, tea.Cmd) {
	if res.IsDone() {
		return m, tea.Quit
	}
	m.mode = modeInput
	m.input.Reset()
	if res.IsError() {
		m.setStatus(res.Error, true)
		return m, nil
	}
	m.status = ""
	var b strings.Builder
	b.WriteString(m.titleStyle.Render(res.Title))
	for _, item := range res.Items {
		b.WriteString("\n")
		b.WriteString(m.itemStyle.Render(item))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
	return m, nil
}

func (m *Model) setStatus(s string, isError bool) {
	m.status = s
	m.isError = isError
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Paleta"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", m.width))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	if ghost := m.ghost(); ghost != "" {
		b.WriteString(m.hintStyle.Render(ghost))
	}
	b.WriteString("\n")

	if m.mode == modeInput {
		for i, s := range m.suggestions.Suggestions {
			if i == maxSuggestions {
				break
			}
			b.WriteString(m.hintStyle.Render("  " + s))
			b.WriteString("\n")
		}
	}
	if m.status != "" {
		style := m.hintStyle
		if m.isError {
			style = m.errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.viewport.View())
	return b.String()
}

// ghost is the untyped remainder of the hint, shown after the cursor.
func (m *Model) ghost() string {
	if m.mode != modeInput {
		return ""
	}
	v := m.input.Value()
	hint := m.suggestions.Hint
	if v == "" || len(hint) <= len(v) || !strings.HasPrefix(strings.ToLower(hint), strings.ToLower(v)) {
		return ""
	}
	return hint[len(v):]
}

func (m *Model) suggest(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := m.daemon.Suggest(ctx, text)
		if err != nil {
			// suggestions are best effort
			return nil
		}
		return events.SuggestionsMsg{Query: text, Result: res}
	}
}

func (m *Model) submit(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := m.daemon.Submit(ctx, text)
		if err != nil {
			return events.ErrorMsg{Err: err}
		}
		return events.SubmittedMsg{ID: id}
	}
}

func (m *Model) resolve(r clarify.Resolution) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := m.daemon.Resolve(ctx, r)
		if err != nil {
			return events.ErrorMsg{Err: err}
		}
		if r.Cancel {
			return events.CancelledMsg{}
		}
		return events.SubmittedMsg{ID: id}
	}
}

// poll long-polls the result slot, then checks for a clarification.
func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollWait+requestTimeout)
		defer cancel()
		res, ok, err := m.daemon.Result(ctx, pollWait)
		if err != nil {
			return events.ErrorMsg{Err: err}
		}
		if ok {
			return events.ResultMsg{Result: res}
		}
		c, ok, err := m.daemon.Clarification(ctx, 0)
		if err != nil {
			return events.ErrorMsg{Err: err}
		}
		if ok {
			return events.ClarificationMsg{Clarification: c}
		}
		return events.PendingMsg{}
	}
}

func (m *Model) checkClose() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if closing, err := m.daemon.CloseRequested(ctx); err == nil && closing {
			return events.CloseMsg{}
		}
		return closeTick()()
	}
}

func closeTick() tea.Cmd {
	return tea.Tick(closeInterval, func(time.Time) tea.Msg { return closeTickMsg{} })
}

// Run shows the palette until the user quits or a command completes.
func Run(d Daemon) error {
	p := tea.NewProgram(New(d))
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "palette")
	}
	return nil
}
