// Package events holds the tea.Msg values exchanged between the palette
// and the commands that talk to the daemon.
package events

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/types"
)

// SuggestionsMsg carries completions for Query. Stale ones are dropped when
// the input has moved on.
type SuggestionsMsg struct {
	Query  string
	Result suggest.Result
}

// SubmittedMsg means the daemon accepted a command or correction.
type SubmittedMsg struct {
	ID string
}

// CancelledMsg means a pending clarification was dropped.
type CancelledMsg struct{}

// ResultMsg is the outcome of the last submission.
type ResultMsg struct {
	Result types.Result
}

// ClarificationMsg asks the user to confirm or correct their input.
type ClarificationMsg struct {
	Clarification types.Clarification
}

// PendingMsg means a poll came back empty and should be retried.
type PendingMsg struct{}

// CloseMsg is sent when the daemon asked front-ends to close.
type CloseMsg struct{}

type ErrorMsg struct {
	Err error
}

var (
	_ tea.Msg = SuggestionsMsg{}
	_ tea.Msg = SubmittedMsg{}
	_ tea.Msg = CancelledMsg{}
	_ tea.Msg = ResultMsg{}
	_ tea.Msg = ClarificationMsg{}
	_ tea.Msg = PendingMsg{}
	_ tea.Msg = CloseMsg{}
	_ tea.Msg = ErrorMsg{}
)
