// Package clarify tracks whether the agent is waiting for the user to
// confirm or correct ambiguous input.
package clarify

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rafabd1/Paleta/internal/types"
)

type State int

const (
	Idle State = iota
	AwaitingClarification
)

func (s State) String() string {
	if s == AwaitingClarification {
		return "awaiting_clarification"
	}
	return "idle"
}

var (
	ErrNoPendingClarification = errors.New("no clarification is pending")
	ErrEmptyResolution        = errors.New("corrected text is empty")
)

// Resolution answers a pending clarification with either corrected text or
// a cancellation.
type Resolution struct {
	Text   string `json:"text"`
	Cancel bool   `json:"cancel"`
}

// Machine is safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	state   State
	pending types.Clarification
	now     func() time.Time
}

func New() *Machine {
	return &Machine{now: time.Now}
}

// Request enters AwaitingClarification for text. A request made while
// already awaiting replaces the pending one.
func (m *Machine) Request(text, reason string) types.Clarification {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = AwaitingClarification
	m.pending = types.Clarification{
		ID:        uuid.NewString(),
		Text:      text,
		Reason:    reason,
		CreatedAt: m.now(),
	}
	return m.pending
}

// Resolve leaves AwaitingClarification. On cancellation it returns an empty
// string and nothing should run. Otherwise it returns the corrected text,
// which the caller submits as new input.
func (m *Machine) Resolve(r Resolution) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != AwaitingClarification {
		return "", ErrNoPendingClarification
	}
	text := strings.TrimSpace(r.Text)
	if !r.Cancel && text == "" {
		return "", ErrEmptyResolution
	}
	m.state = Idle
	m.pending = types.Clarification{}
	if r.Cancel {
		return "", nil
	}
	return text, nil
}

// Reset drops any pending request.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Idle
	m.pending = types.Clarification{}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the request being awaited, if any.
func (m *Machine) Pending() (types.Clarification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, m.state == AwaitingClarification
}
