package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/types"
	"github.com/rafabd1/Paleta/pkg/events"
)

type fakeDaemon struct {
	submitErr     error
	submitted     []string
	resolved      []clarify.Resolution
	result        *types.Result
	clarification *types.Clarification
	closing       bool
}

func (f *fakeDaemon) Suggest(_ context.Context, text string) (suggest.Result, error) {
	return suggest.Result{Suggestions: []string{"focus slack"}, Hint: "focus slack"}, nil
}

func (f *fakeDaemon) Submit(_ context.Context, text string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, text)
	return "id-1", nil
}

func (f *fakeDaemon) Resolve(_ context.Context, r clarify.Resolution) (string, error) {
	f.resolved = append(f.resolved, r)
	return "id-2", nil
}

func (f *fakeDaemon) Result(context.Context, time.Duration) (types.Result, bool, error) {
	if f.result == nil {
		return types.Result{}, false, nil
	}
	return *f.result, true, nil
}

func (f *fakeDaemon) Clarification(context.Context, time.Duration) (types.Clarification, bool, error) {
	if f.clarification == nil {
		return types.Clarification{}, false, nil
	}
	return *f.clarification, true, nil
}

func (f *fakeDaemon) CloseRequested(context.Context) (bool, error) {
	return f.closing, nil
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func send(t *testing.T, m *Model, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	return cmd()
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestSubmitThenSentinelQuits(t *testing.T) {
	d := &fakeDaemon{}
	m := New(d)
	m.input.SetValue("  focus slack ")

	msg := send(t, m, key(tea.KeyEnter))
	assert.Equal(t, events.SubmittedMsg{ID: "id-1"}, msg)
	assert.Equal(t, modeWaiting, m.mode)
	assert.Equal(t, []string{"focus slack"}, d.submitted)

	// nothing ready yet
	assert.Equal(t, events.PendingMsg{}, send(t, m, msg))

	done := types.Done()
	d.result = &done
	res := send(t, m, events.PendingMsg{})
	assert.Equal(t, events.ResultMsg{Result: done}, res)

	_, cmd := m.Update(res)
	assert.True(t, isQuit(cmd))
}

func TestDisplayResultStays(t *testing.T) {
	m := New(&fakeDaemon{})
	m.mode = modeWaiting
	_, cmd := m.Update(events.ResultMsg{Result: types.Result{Title: "Open Tabs", Items: []string{"1. Inbox (mail.google.com)"}}})
	assert.Nil(t, cmd)
	assert.Equal(t, modeInput, m.mode)
	assert.Contains(t, m.View(), "Inbox")
}

func TestErrorResult(t *testing.T) {
	m := New(&fakeDaemon{})
	m.mode = modeWaiting
	m.Update(events.ResultMsg{Result: types.Failure("Invalid command: bad tab")})
	assert.Equal(t, modeInput, m.mode)
	assert.True(t, m.isError)
	assert.Equal(t, "Invalid command: bad tab", m.status)
}

func TestBusyMessage(t *testing.T) {
	d := &fakeDaemon{submitErr: engine.ErrEngineBusy}
	m := New(d)
	m.input.SetValue("list apps")
	msg := send(t, m, key(tea.KeyEnter))
	m.Update(msg)
	assert.Equal(t, modeInput, m.mode)
	assert.Contains(t, m.status, "try again")
}

func TestClarificationFlow(t *testing.T) {
	d := &fakeDaemon{clarification: &types.Clarification{ID: "c1", Text: "fcs slk", Reason: "Could not understand the command"}}
	m := New(d)
	m.mode = modeWaiting

	msg := send(t, m, events.PendingMsg{})
	require.IsType(t, events.ClarificationMsg{}, msg)
	m.Update(msg)
	assert.Equal(t, modeClarify, m.mode)
	assert.Equal(t, "fcs slk", m.input.Value())

	m.input.SetValue("focus slack")
	assert.Equal(t, events.SubmittedMsg{ID: "id-2"}, send(t, m, key(tea.KeyEnter)))
	assert.Equal(t, []clarify.Resolution{{Text: "focus slack"}}, d.resolved)
}

func TestClarificationCancel(t *testing.T) {
	d := &fakeDaemon{}
	m := New(d)
	m.Update(events.ClarificationMsg{Clarification: types.Clarification{Text: "x"}})

	msg := send(t, m, key(tea.KeyEsc))
	assert.Equal(t, events.CancelledMsg{}, msg)
	assert.Equal(t, []clarify.Resolution{{Cancel: true}}, d.resolved)
	m.Update(msg)
	assert.Equal(t, modeInput, m.mode)
	assert.Empty(t, m.input.Value())
}

func TestTabAcceptsHint(t *testing.T) {
	m := New(&fakeDaemon{})
	m.input.SetValue("foc")
	m.Update(events.SuggestionsMsg{Query: "foc", Result: suggest.Result{Hint: "focus slack"}})
	assert.Equal(t, "us slack", m.ghost())

	m.Update(key(tea.KeyTab))
	assert.Equal(t, "focus slack", m.input.Value())
}

func TestStaleSuggestionsDropped(t *testing.T) {
	m := New(&fakeDaemon{})
	m.input.SetValue("focus")
	m.Update(events.SuggestionsMsg{Query: "fo", Result: suggest.Result{Hint: "focus firefox"}})
	assert.Empty(t, m.suggestions.Hint)
}

func TestEmptyEnterIgnored(t *testing.T) {
	d := &fakeDaemon{}
	m := New(d)
	_, cmd := m.Update(key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Empty(t, d.submitted)
}

func TestCloseRequested(t *testing.T) {
	m := New(&fakeDaemon{closing: true})
	assert.Equal(t, events.CloseMsg{}, send(t, m, closeTickMsg{}))
	_, cmd := m.Update(events.CloseMsg{})
	assert.True(t, isQuit(cmd))
}

func TestStaleResultSkipped(t *testing.T) {
	d := &fakeDaemon{}
	m := New(d)
	m.mode = modeWaiting
	m.Update(events.SubmittedMsg{ID: "new"})

	_, cmd := m.Update(events.ResultMsg{Result: types.Result{ID: "old", Title: "Running Applications"}})
	require.NotNil(t, cmd)
	assert.Equal(t, modeWaiting, m.mode)
	assert.Equal(t, events.PendingMsg{}, cmd())

	_, cmd = m.Update(events.ResultMsg{Result: types.Result{ID: "new", Items: []string{}}})
	assert.True(t, isQuit(cmd))
}
